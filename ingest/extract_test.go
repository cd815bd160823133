package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixbase/fixbase/core"
)

func TestExtractHTML(t *testing.T) {
	html := `<html><head><title>G120 Service Manual</title>
<script>var tracking = true;</script></head>
<body>
<nav>Home | Products | Support</nav>
<h1>Fault diagnostics</h1>
<p>F0003 indicates a DC link undervoltage condition.</p>
<p>Check the mains supply before resetting the fault.</p>
<footer>Copyright</footer>
</body></html>`

	e := NewExtractor()
	got, err := e.Extract(core.SourceRef{URL: "https://example.com/manual"}, []byte(html), "text/html")

	require.NoError(t, err)
	assert.Equal(t, "G120 Service Manual", got.Title)
	assert.Contains(t, got.Text, "DC link undervoltage")
	assert.Contains(t, got.Text, "mains supply")
	assert.NotContains(t, got.Text, "tracking")
	assert.NotContains(t, got.Text, "Home | Products")
}

func TestExtractStripsTabularArtifacts(t *testing.T) {
	text := `The drive trips when the DC link voltage collapses.

| Parameter | Value |
| P0210 | 400 |
| P1080 | 0 |

Reset the fault after restoring the supply.`

	e := NewExtractor()
	got, err := e.Extract(core.SourceRef{URL: "u", Page: 12}, []byte(text), "text/plain")

	require.NoError(t, err)
	assert.NotContains(t, got.Text, "P0210")
	assert.Contains(t, got.Text, "(see source documentation, page 12)")
	// Contiguous table block collapses into a single pointer
	assert.Equal(t, 1, strings.Count(got.Text, "see source documentation"))
	assert.Contains(t, got.Text, "Reset the fault")
}

func TestExtractEmptyPayload(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(core.SourceRef{URL: "u"}, []byte("   \n  "), "text/plain")

	var acq *AcquisitionError
	require.True(t, errors.As(err, &acq))
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestExtractArtifactOnlyPayload(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(core.SourceRef{URL: "u"}, []byte("<html><body><script>x</script></body></html>"), "text/html")

	var acq *AcquisitionError
	require.True(t, errors.As(err, &acq))
	assert.ErrorIs(t, err, ErrNoExtractableText)
}
