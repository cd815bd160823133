package ingest

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// Linker scans newly stored atoms against the existing store for plausible
// relations. Linking is best-effort: failures are logged and never fail the
// ingestion job.
type Linker struct {
	atoms     storage.AtomRepository
	relations storage.RelationRepository
	logger    *slog.Logger
}

// NewLinker creates a relation linker.
func NewLinker(atoms storage.AtomRepository, relations storage.RelationRepository, logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{
		atoms:     atoms,
		relations: relations,
		logger:    logger.With("component", "linker"),
	}
}

// Link relates the batch of newly stored atoms to each other and to the
// existing store. Returns the number of relations written.
func (l *Linker) Link(ctx context.Context, batch []*core.Atom) int {
	written := 0
	for i, atom := range batch {
		written += l.linkKeywords(ctx, atom)
		written += l.linkFaults(ctx, atom)

		// Consecutive procedure atoms from the same source form a
		// prerequisite chain: the later atom requires the earlier one.
		if i > 0 && atom.Kind == core.KindProcedure && batch[i-1].Kind == core.KindProcedure &&
			atom.Source.URL == batch[i-1].Source.URL {
			written += l.addRelation(ctx, &core.Relation{
				FromId: batch[i-1].Id,
				ToId:   atom.Id,
				Type:   core.RelPrerequisiteOf,
			})
		}
	}
	return written
}

// Supersede stores a supersession relation from the replacement atom to the
// atom it replaces, and marks relations originating at the old atom as
// superseded.
func (l *Linker) Supersede(ctx context.Context, newID, oldID core.ID) error {
	if _, err := l.relations.AddRelations(ctx, &core.Relation{
		FromId: newID,
		ToId:   oldID,
		Type:   core.RelSupersedes,
	}); err != nil {
		return err
	}

	old, err := l.relations.GetRelationsFrom(ctx, oldID)
	if err != nil {
		return err
	}
	for _, rel := range old {
		if rel.Type == core.RelSupersedes {
			continue
		}
		if err := l.relations.MarkSuperseded(ctx, rel.Id); err != nil {
			return err
		}
	}
	return nil
}

// linkKeywords records RelatedIds for atoms sharing enough query keywords.
func (l *Linker) linkKeywords(ctx context.Context, atom *core.Atom) int {
	if len(atom.Keywords) == 0 {
		return 0
	}

	matches, err := l.atoms.SearchKeywords(ctx, atom.Keywords, 10)
	if err != nil {
		l.logger.Warn("keyword linking failed", "atom", atom.Id, "err", err)
		return 0
	}

	var related []core.ID
	for _, match := range matches {
		if match.Atom.Id == atom.Id {
			continue
		}
		// Require at least half of the keywords in common
		if match.Score >= 0.5 {
			related = append(related, match.Atom.Id)
		}
	}
	if len(related) == 0 {
		return 0
	}

	merged := atom.RelatedIds
	for _, id := range related {
		if !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}
	if err := l.atoms.UpdateRelatedIds(ctx, atom.Id, merged); err != nil {
		l.logger.Warn("failed to update related ids", "atom", atom.Id, "err", err)
		return 0
	}
	atom.RelatedIds = merged
	return len(related)
}

// linkFaults ties fault atoms to same-manufacturer atoms referencing the
// fault code, and non-fault atoms to the faults they mention.
func (l *Linker) linkFaults(ctx context.Context, atom *core.Atom) int {
	if atom.Kind != core.KindFault || atom.FaultCode == "" || atom.Manufacturer == "" {
		return 0
	}

	matches, err := l.atoms.SearchKeywords(ctx, []string{strings.ToLower(atom.FaultCode)}, 10)
	if err != nil {
		l.logger.Warn("fault linking failed", "atom", atom.Id, "err", err)
		return 0
	}

	written := 0
	for _, match := range matches {
		other := match.Atom
		if other.Id == atom.Id || other.Kind == core.KindFault {
			continue
		}
		if other.Manufacturer != atom.Manufacturer {
			continue
		}
		written += l.addRelation(ctx, &core.Relation{
			FromId: atom.Id,
			ToId:   other.Id,
			Type:   core.RelFaultOf,
		})
	}
	return written
}

func (l *Linker) addRelation(ctx context.Context, rel *core.Relation) int {
	if _, err := l.relations.AddRelations(ctx, rel); err != nil {
		l.logger.Warn("failed to add relation",
			"type", rel.Type.String(), "from", rel.FromId, "to", rel.ToId, "err", err)
		return 0
	}
	return 1
}
