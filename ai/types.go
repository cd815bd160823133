package ai

// AtomKinds defines the valid kind names for generated atom candidates.
// The generator classifies each candidate into exactly one of these.
var AtomKinds = []string{
	"concept",
	"procedure",
	"fault",
	"pattern",
	"specification",
}

// Difficulties defines the valid difficulty names for generated candidates.
var Difficulties = []string{
	"basic",
	"intermediate",
	"advanced",
}

// SafetyLevels defines the valid safety level names for generated candidates.
var SafetyLevels = []string{
	"info",
	"warning",
	"danger",
}

// Chunk is one bounded segment of extracted source text handed to the
// atom generator, together with the source metadata the generator may cite.
type Chunk struct {
	// Text is the chunk body, plain prose after extraction.
	Text string

	// SourceURL is the document or page the chunk came from.
	SourceURL string

	// SourceTitle is the human-readable title of the source, if known.
	SourceTitle string

	// Page is the 1-based page within the source, 0 if unknown.
	Page int

	// Index is the 0-based position of this chunk within the source.
	Index int
}

// CandidateCitation is a supporting reference attached to a candidate.
type CandidateCitation struct {
	// URL of the cited source.
	URL string

	// Title of the cited source.
	Title string
}

// AtomCandidate is the generator's wire-shape output: a knowledge atom
// before identity, embedding and quality scoring are assigned.
type AtomCandidate struct {
	// Kind is one of AtomKinds.
	Kind string

	// Title is a short headline, e.g. "F0003 undervoltage trip".
	Title string

	// Summary is one or two teaching-oriented sentences.
	Summary string

	// Body is the longer narrative. May be empty for specification
	// candidates whose content lives entirely in Summary.
	Body string

	// Manufacturer is the lowercase vendor name, empty if not identifiable.
	Manufacturer string

	// ProductFamily is the lowercase product line, e.g. "sinamics g120".
	ProductFamily string

	// ProductVersion is the firmware or hardware version, if stated.
	ProductVersion string

	// Difficulty is one of Difficulties, empty if not assessable.
	Difficulty string

	// SafetyLevel is one of SafetyLevels.
	SafetyLevel string

	// SafetyNotes describes hazards, empty when SafetyLevel is "info".
	SafetyNotes string

	// Keywords are lowercase search terms, 3-8 per candidate.
	Keywords []string

	// Steps is the ordered step list; required for procedure candidates,
	// empty for all other kinds.
	Steps []string

	// FaultCode is the vendor fault identifier; set for fault candidates.
	FaultCode string

	// Citations list the sources supporting this candidate.
	Citations []CandidateCitation
}
