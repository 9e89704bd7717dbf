// Package github fetches repository files and commit history from the
// GitHub REST API.
//
// LoadRepository walks the default branch tree of a repository and returns
// its text files as langchaingo documents, skipping lock files, build output
// and binary content. ListCommits and GetCommit feed the commit poller.
package github
