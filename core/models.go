package core

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that identical content
// always maps to the same identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// HashContent computes the full BLAKE2b-256 hex digest of raw content bytes.
// Used by the fingerprint store for source deduplication.
func HashContent(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// AtomKind classifies a knowledge atom.
type AtomKind int

const (
	// KindConcept explains what something is.
	KindConcept AtomKind = iota + 1
	// KindProcedure is an ordered sequence of steps.
	KindProcedure
	// KindFault describes a fault condition and its remedies.
	KindFault
	// KindPattern captures a recurring diagnostic pattern.
	KindPattern
	// KindSpecification holds reference data, possibly summary-only.
	KindSpecification
)

// String returns the lowercase name of the kind, matching the wire form
// used by the atom generator.
func (k AtomKind) String() string {
	switch k {
	case KindConcept:
		return "concept"
	case KindProcedure:
		return "procedure"
	case KindFault:
		return "fault"
	case KindPattern:
		return "pattern"
	case KindSpecification:
		return "specification"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseAtomKind converts a lowercase kind name to an AtomKind.
// Returns 0 for unrecognized names.
func ParseAtomKind(s string) AtomKind {
	switch s {
	case "concept":
		return KindConcept
	case "procedure":
		return KindProcedure
	case "fault":
		return KindFault
	case "pattern":
		return KindPattern
	case "specification":
		return KindSpecification
	default:
		return 0
	}
}

// Difficulty rates how demanding an atom is to apply.
type Difficulty int

const (
	// DifficultyBasic requires no special training.
	DifficultyBasic Difficulty = iota + 1
	// DifficultyIntermediate requires familiarity with the equipment.
	DifficultyIntermediate
	// DifficultyAdvanced requires trained service personnel.
	DifficultyAdvanced
)

// SafetyLevel indicates how hazardous the described work is.
type SafetyLevel int

const (
	// SafetyInfo carries no particular hazard.
	SafetyInfo SafetyLevel = iota + 1
	// SafetyWarning requires caution.
	SafetyWarning
	// SafetyDanger involves hazardous voltage, pressure or motion.
	SafetyDanger
)

// SourceRef identifies where content came from: a document or URL plus an
// optional page and byte offset within it.
type SourceRef struct {
	URL    string
	Page   int
	Offset int
}

// String returns a canonical form of the reference, used in deterministic
// ID derivation and log output.
func (s SourceRef) String() string {
	out := s.URL
	if s.Page > 0 {
		out += "#page=" + strconv.Itoa(s.Page)
	}
	if s.Offset > 0 {
		out += "@" + strconv.Itoa(s.Offset)
	}
	return out
}

// Citation records a supporting reference for an atom.
type Citation struct {
	URL        string
	Title      string
	AccessedAt time.Time
}

// Atom is a single stored unit of validated troubleshooting knowledge.
//
// An atom is immutable once stored except for RelatedIds and UpdatedAt;
// content changes produce a new atom plus a supersession relation, never an
// in-place rewrite. Kind-specific fields (Steps, FaultCode) form a tagged
// variant: only the fields matching Kind are populated.
type Atom struct {
	Id              ID
	Kind            AtomKind
	Title           string
	Summary         string // short teaching-oriented text
	Body            string // longer narrative; may be empty for specification atoms
	Manufacturer    string
	ProductFamily   string
	ProductVersion  string
	Difficulty      Difficulty
	PrerequisiteIds []ID
	RelatedIds      []ID
	Source          SourceRef
	Citations       []Citation
	QualityScore    int // 0-100, assigned by the quality gate
	SafetyLevel     SafetyLevel
	SafetyNotes     string
	Keywords        []string
	Steps           []string // procedure atoms only: ordered step list
	FaultCode       string   // fault atoms only: e.g. "F0003"
	Vector          []float32
	InsertedAt      time.Time
	UpdatedAt       time.Time
}

// AtomID derives the deterministic storage ID for an atom produced from a
// given source, content hash and sequence index within that content.
// Re-running generation on already-seen content yields the same IDs, so
// upserts cannot create duplicate rows even if the fingerprint check is
// bypassed.
func AtomID(source SourceRef, contentHash string, seq int) ID {
	return IDFromContent(source.String() + "|" + contentHash + "|" + strconv.Itoa(seq))
}

// Fingerprint is the deduplication ledger entry for ingested content.
// A fingerprint is written exactly once per distinct content hash.
type Fingerprint struct {
	Hash        string // BLAKE2b-256 hex of normalized content bytes
	Source      SourceRef
	FirstSeenAt time.Time
}

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus int

const (
	// JobPending means the job is queued and unclaimed.
	JobPending JobStatus = iota + 1
	// JobRunning means a worker has claimed the job.
	JobRunning
	// JobPartial means the job finished with some chunks failing.
	JobPartial
	// JobCompleted means all stages reported success.
	JobCompleted
	// JobFailed means the job terminated without storing atoms.
	JobFailed
)

// String returns the lowercase status name.
func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobPartial:
		return "partial"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// IngestionJob tracks one unit of background ingestion work from enqueue to
// terminal state. Jobs are created manually, on schedule, or by the gap
// detector, and mutated by each pipeline stage.
type IngestionJob struct {
	Id           string // UUID
	Source       SourceRef
	Hints        []string // keywords describing what the job should cover (gap jobs)
	Priority     int      // higher is claimed first
	Status       JobStatus
	StageTimings map[string]time.Duration
	AtomsCreated int
	AtomsFailed  int
	Errors       []string
	EnqueuedAt   time.Time
	ClaimedAt    time.Time
	ClaimedBy    string    // worker identifier
	Deadline     time.Time // liveness deadline while running
	FinishedAt   time.Time
}

// FailedIngestion records a stage failure for retry and manual triage.
// A background sweep retries entries below the retry cap with exponential
// delay; exhausted entries remain for manual triage.
type FailedIngestion struct {
	Id          ID
	Source      SourceRef
	Stage       string
	Message     string
	RetryCount  int
	NextRetryAt time.Time
	Resolved    bool
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// FailedIngestionID derives the deterministic ID for a failure record so
// that repeated failures of the same source and stage collapse into one
// entry with an incremented retry count.
func FailedIngestionID(source SourceRef, stage string) ID {
	return IDFromContent(source.String() + "!" + stage)
}

// ReviewDecision is the reviewer's verdict on a marginal atom candidate.
type ReviewDecision int

const (
	// ReviewPending awaits a reviewer.
	ReviewPending ReviewDecision = iota + 1
	// ReviewApproved converts the entry into a stored atom.
	ReviewApproved
	// ReviewRejected discards the entry.
	ReviewRejected
)

// ReviewEntry holds an atom candidate whose quality score fell between the
// review and accept thresholds, awaiting a human decision.
type ReviewEntry struct {
	Id         ID // equals the candidate atom's ID
	Atom       Atom
	Decision   ReviewDecision
	InsertedAt time.Time
	DecidedAt  time.Time
}

// RelationType classifies a directed relation between two atoms.
type RelationType int

const (
	// RelPrerequisiteOf marks From as required knowledge before To.
	RelPrerequisiteOf RelationType = iota + 1
	// RelFaultOf links a fault atom to the equipment concept it afflicts.
	RelFaultOf
	// RelPartOf marks From as a component of To.
	RelPartOf
	// RelSupersedes marks From as the replacement for To.
	RelSupersedes
)

// String returns the lowercase relation name.
func (t RelationType) String() string {
	switch t {
	case RelPrerequisiteOf:
		return "prerequisite_of"
	case RelFaultOf:
		return "fault_of"
	case RelPartOf:
		return "part_of"
	case RelSupersedes:
		return "supersedes"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Relation is a directed edge between two atoms. Relations are never
// deleted, only superseded by newer relations, preserving audit history.
type Relation struct {
	Id         ID
	FromId     ID
	ToId       ID
	Type       RelationType
	Superseded bool
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Tuple returns a string representation of the relation as "(type,from,to)".
// This is used for generating deterministic IDs.
func (r *Relation) Tuple() string {
	return "(" + r.Type.String() + "," + strconv.FormatUint(uint64(r.FromId), 10) +
		"," + strconv.FormatUint(uint64(r.ToId), 10) + ")"
}

// SimilarityMatch represents an atom match from vector similarity search.
type SimilarityMatch struct {
	AtomId ID
	Score  float32
}

// SearchResult represents a search result with the full atom and relevance score.
type SearchResult struct {
	Atom  *Atom
	Score float32
}
