package coverage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// badgerStore wraps a Store with test helpers.
type badgerStore struct {
	storage.Store
}

func (s *badgerStore) mustUpsert(t *testing.T, atoms ...*core.Atom) {
	t.Helper()
	_, err := s.UpsertAtoms(context.Background(), atoms...)
	require.NoError(t, err)
}

func faultAtom(title, manufacturer string, keywords []string) *core.Atom {
	return &core.Atom{
		Id:           core.IDFromContent(title),
		Kind:         core.KindFault,
		Title:        title,
		Summary:      "Summary for " + title,
		Body:         "Body for " + title,
		Manufacturer: manufacturer,
		Keywords:     keywords,
		Source:       core.SourceRef{URL: "https://example.com/manual.pdf"},
	}
}

func TestEvaluateAggregatesMatches(t *testing.T) {
	router, store := newTestRouter(t, DefaultConfig())
	ctx := context.Background()

	store.mustUpsert(t,
		faultAtom("Full match", "siemens", []string{"siemens", "g120", "f0003"}),
		faultAtom("Partial match", "siemens", []string{"siemens", "g120"}),
	)

	eval, err := router.evaluator.Evaluate(ctx, "Siemens G120 F0003")
	require.NoError(t, err)

	assert.Equal(t, "siemens", eval.Manufacturer)
	assert.InDelta(t, 1.0, eval.ManufacturerConfidence, 0.001)
	assert.Contains(t, eval.Keywords, "f0003")
	assert.Contains(t, eval.Keywords, "g120")
	assert.Equal(t, 2, eval.AtomCount)

	// (1.0 + 2/3) / 2
	assert.InDelta(t, 0.833, eval.AvgRelevance, 0.01)
}

func TestEvaluateFiltersForeignManufacturers(t *testing.T) {
	router, store := newTestRouter(t, DefaultConfig())
	ctx := context.Background()

	store.mustUpsert(t,
		faultAtom("Siemens hit", "siemens", []string{"g120", "f0003"}),
		faultAtom("ABB lookalike", "abb", []string{"g120", "f0003"}),
		faultAtom("Unattributed hit", "", []string{"g120", "f0003"}),
	)

	eval, err := router.evaluator.Evaluate(ctx, "Siemens G120 F0003")
	require.NoError(t, err)

	// Foreign-manufacturer atoms never count; unattributed atoms do
	assert.Equal(t, 2, eval.AtomCount)
	for _, match := range eval.Matches {
		assert.NotEqual(t, "abb", match.Atom.Manufacturer)
	}
}

func TestEvaluateEmptyQuery(t *testing.T) {
	router, _ := newTestRouter(t, DefaultConfig())

	eval, err := router.evaluator.Evaluate(context.Background(), "the of a")
	require.NoError(t, err)
	assert.Equal(t, 0, eval.AtomCount)
	assert.Zero(t, eval.AvgRelevance)
}

func TestDetectVendor(t *testing.T) {
	t.Run("vendor plus fault code", func(t *testing.T) {
		det := DetectVendor("Siemens G120 F0003 undervoltage")
		assert.Equal(t, "siemens", det.Manufacturer)
		assert.InDelta(t, 1.0, det.Confidence, 0.001)
		assert.Contains(t, det.Keywords, "f0003")
		assert.Contains(t, det.Keywords, "g120")
	})

	t.Run("alias resolves to canonical name", func(t *testing.T) {
		det := DetectVendor("powerflex 525 drive tuning")
		assert.Equal(t, "allen-bradley", det.Manufacturer)
		assert.InDelta(t, 0.8, det.Confidence, 0.001)
	})

	t.Run("bare vendor name", func(t *testing.T) {
		det := DetectVendor("danfoss commissioning checklist")
		assert.Equal(t, "danfoss", det.Manufacturer)
		assert.InDelta(t, 0.8, det.Confidence, 0.001)
	})

	t.Run("fault code without vendor", func(t *testing.T) {
		det := DetectVendor("what does F0003 mean")
		assert.Empty(t, det.Manufacturer)
		assert.InDelta(t, 0.3, det.Confidence, 0.001)
		assert.Contains(t, det.Keywords, "f0003")
	})

	t.Run("no signal at all", func(t *testing.T) {
		det := DetectVendor("motor keeps tripping")
		assert.Empty(t, det.Manufacturer)
		assert.Zero(t, det.Confidence)
		assert.Empty(t, det.Keywords)
	})

	t.Run("substring never matches", func(t *testing.T) {
		// "abb" inside another word is not a vendor hit
		det := DetectVendor("grabbing the coupling")
		assert.Empty(t, det.Manufacturer)
	})
}
