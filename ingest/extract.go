package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fixbase/fixbase/core"
)

// Extraction is normalized source content ready for chunking.
type Extraction struct {
	Text  string
	Title string
}

// Extractor normalizes heterogeneous source payloads into plain prose.
// Raw tabular dumps and parameter lists are replaced with a one-line pointer
// back to the source; downstream quality checks depend on this.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// Extract produces plain text plus a title from an already-fetched payload.
// contentType is a hint ("text/html", "text/markdown", "text/plain"); unknown
// types are treated as plain text. Returns an AcquisitionError when the
// payload is empty or yields no prose.
func (e *Extractor) Extract(source core.SourceRef, payload []byte, contentType string) (*Extraction, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, &AcquisitionError{Err: ErrEmptyPayload}
	}

	var text, title string
	if strings.Contains(contentType, "html") {
		text, title = extractHTML(string(payload))
	} else {
		text = string(payload)
	}

	text = stripArtifacts(text, source.Page)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &AcquisitionError{Err: ErrNoExtractableText}
	}

	return &Extraction{Text: text, Title: title}, nil
}

// extractHTML strips chrome elements and returns body text plus the title.
func extractHTML(html string) (string, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	// Keep paragraph boundaries: join block-level text with blank lines so
	// the chunker can prefer them as split points.
	var blocks []string
	doc.Find("h1, h2, h3, h4, p, li, pre").Each(func(i int, s *goquery.Selection) {
		t := whitespaceRE.ReplaceAllString(strings.TrimSpace(s.Text()), " ")
		if t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		body := whitespaceRE.ReplaceAllString(strings.TrimSpace(doc.Find("body").Text()), " ")
		return body, title
	}
	return strings.Join(blocks, "\n\n"), title
}

// tabularLineRE matches lines that read as table rows or parameter dumps
// rather than prose: pipe/tab separated cells, or "P1234 = value" listings.
var tabularLineRE = regexp.MustCompile(`^\s*(\|.*\||[^\s]+\t.+|[Pp]\d{3,5}\s*[=:].+|[-+=|_]{4,})\s*$`)

// stripArtifacts replaces contiguous blocks of non-prose lines with a
// pointer to the source documentation.
func stripArtifacts(text string, page int) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	inArtifact := false

	pointer := "(see source documentation"
	if page > 0 {
		pointer += ", page " + strconv.Itoa(page)
	}
	pointer += ")"

	for _, line := range lines {
		if tabularLineRE.MatchString(line) {
			if !inArtifact {
				out = append(out, pointer)
				inArtifact = true
			}
			continue
		}
		if strings.TrimSpace(line) != "" {
			inArtifact = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
