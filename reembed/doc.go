// Package reembed recomputes the summary vectors of a project's stored files.
//
// Run it after switching embedding models: vectors from different models
// are not comparable, so every file of the project must be embedded again
// before search results make sense. Summaries and source are left as is.
package reembed
