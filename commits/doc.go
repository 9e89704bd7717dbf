// Package commits pulls recent upstream commits of a project, summarizes
// their diffs and stores the ones not seen before.
package commits
