// Package ingestion turns a repository into stored, searchable embeddings.
//
// Indexing runs in three stages:
//   - a Fetcher loads the repository's files as documents
//   - the Assembler summarizes each file and embeds the summary
//   - the Writer stores each embedding and then writes its vector
//
// Per-file failures in the assembler and the writer are logged and counted,
// never fatal. Indexing fails only when no file could be stored.
package ingestion
