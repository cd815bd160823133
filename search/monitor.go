package search

import (
	"github.com/fixbase/fixbase/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterLexicalSearch(ids []core.ID)
	AfterSemanticSearch(ids []core.ID)
	AfterAtomRetrieval(atoms []*core.Atom)
	LexicalAndSemanticHit(atom *core.Atom)
	LexicalHit(atom *core.Atom)
	SemanticHit(atom *core.Atom)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                     {}
func (n *noopMonitor) AfterLexicalSearch(_ []core.ID)     {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ID)    {}
func (n *noopMonitor) AfterAtomRetrieval(_ []*core.Atom)  {}
func (n *noopMonitor) LexicalAndSemanticHit(_ *core.Atom) {}
func (n *noopMonitor) LexicalHit(_ *core.Atom)            {}
func (n *noopMonitor) SemanticHit(_ *core.Atom)           {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)      {}
