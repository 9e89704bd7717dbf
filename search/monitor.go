package search

import (
	"github.com/poiesic/stackalchemy/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(projectID core.ID, query string)
	AfterSemanticSearch(hits []*core.SearchResult)
	KeywordHit(hit *core.SearchResult)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.ID, _ string)                  {}
func (n *noopMonitor) AfterSemanticSearch(_ []*core.SearchResult) {}
func (n *noopMonitor) KeywordHit(_ *core.SearchResult)            {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)              {}
