package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/fixbase/fixbase/ai"
	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// Filters narrow a search to atoms matching every set field.
type Filters struct {
	// Kind restricts results to one atom kind when nonzero.
	Kind core.AtomKind

	// Manufacturer restricts results to one manufacturer, case-insensitive.
	Manufacturer string

	// MinQuality drops atoms below this quality score when positive.
	MinQuality int
}

func (f Filters) match(atom *core.Atom) bool {
	if f.Kind != 0 && atom.Kind != f.Kind {
		return false
	}
	if f.Manufacturer != "" && !strings.EqualFold(f.Manufacturer, atom.Manufacturer) {
		return false
	}
	if f.MinQuality > 0 && atom.QualityScore < f.MinQuality {
		return false
	}
	return true
}

// Searcher provides hybrid lexical and semantic search over stored atoms.
type Searcher struct {
	atoms         storage.AtomRepository
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the vector similarity floor for the semantic leg.
// Default is 0.60.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = min
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(atoms storage.AtomRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if atoms == nil {
		return nil, ErrAtomRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		atoms:         atoms,
		embedder:      provider.Embedder(),
		minSimilarity: 0.60,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search finds atoms relevant to the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) Search(ctx context.Context, query string, filters Filters, maxHits int) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, filters, maxHits, nil)
}

// SearchWithMonitor finds atoms relevant to the query with monitoring.
// The monitor receives callbacks at each stage of the search process.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, filters Filters, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	monitor.Start(query)

	// 1. Lexical leg over the keyword index
	lexicalScores := make(map[core.ID]float32)
	lexicalIds := make([]core.ID, 0)
	lexical, err := s.atoms.SearchKeywords(ctx, terms, maxHits)
	if err != nil {
		s.logger.Error("error in keyword search", "query", query, "err", err)
		return nil, err
	}
	for _, match := range lexical {
		lexicalScores[match.Atom.Id] = match.Score
		lexicalIds = append(lexicalIds, match.Atom.Id)
	}
	monitor.AfterLexicalSearch(lexicalIds)

	// 2. Semantic leg over stored vectors
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	semantic, err := s.atoms.FindSimilar(ctx, embedding, s.minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar atoms", "err", err)
		return nil, err
	}

	semanticScores := make(map[core.ID]float32)
	semanticIds := make([]core.ID, 0, len(semantic))
	for _, match := range semantic {
		semanticScores[match.Atom.Id] = match.Score
		semanticIds = append(semanticIds, match.Atom.Id)
	}
	monitor.AfterSemanticSearch(semanticIds)

	// 3. Combine the legs
	allIds := make(map[core.ID]bool)
	for id := range lexicalScores {
		allIds[id] = true
	}
	for id := range semanticScores {
		allIds[id] = true
	}

	if len(allIds) == 0 {
		return []*core.SearchResult{}, nil
	}

	uniqueIds := make([]core.ID, 0, len(allIds))
	for id := range allIds {
		uniqueIds = append(uniqueIds, id)
	}

	atoms, err := s.atoms.GetAtoms(ctx, uniqueIds...)
	if err != nil {
		s.logger.Error("error retrieving atoms", "atomCount", len(uniqueIds), "err", err)
		return nil, err
	}
	monitor.AfterAtomRetrieval(atoms)

	// 4. Score and build results
	results := make([]*core.SearchResult, 0, len(atoms))

	for _, atom := range atoms {
		if atom == nil || !filters.match(atom) {
			continue
		}

		lexScore, inLexical := lexicalScores[atom.Id]
		simScore, inSemantic := semanticScores[atom.Id]

		var score float32
		switch {
		case inLexical && inSemantic:
			// In both legs: boost by 1.5x, weighted by similarity score
			score = 1.5 * simScore
			monitor.LexicalAndSemanticHit(atom)
		case inLexical:
			score = 1.2 * lexScore
			monitor.LexicalHit(atom)
		default:
			score = simScore
			monitor.SemanticHit(atom)
		}

		// Apply verbatim match boost
		if containsAllQueryWords(atom.Title+" "+atom.Summary+" "+atom.Body, query) {
			score += 0.3
		}

		results = append(results, &core.SearchResult{
			Atom:  atom,
			Score: score,
		})
	}

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}
