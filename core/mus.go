// Copyright 2026 Fixbase Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain entities. Written by hand against the
// mus-go serializer API; field order is part of the storage format and must
// not change between releases.

var (
	// IDMUS serializes entity IDs.
	IDMUS = idMUS{}
	// SourceRefMUS serializes source references.
	SourceRefMUS = sourceRefMUS{}
	// CitationMUS serializes citations.
	CitationMUS = citationMUS{}
	// AtomMUS serializes knowledge atoms.
	AtomMUS = atomMUS{}
	// FingerprintMUS serializes dedup fingerprints.
	FingerprintMUS = fingerprintMUS{}
	// IngestionJobMUS serializes ingestion jobs.
	IngestionJobMUS = ingestionJobMUS{}
	// FailedIngestionMUS serializes failure records.
	FailedIngestionMUS = failedIngestionMUS{}
	// ReviewEntryMUS serializes human review queue entries.
	ReviewEntryMUS = reviewEntryMUS{}
	// RelationMUS serializes atom relations.
	RelationMUS = relationMUS{}
)

// Timestamps are stored with microsecond precision and decoded back to
// UTC, so a round-tripped record compares equal to what was written.
var timeMUS = utcTimeMUS{}

// Now returns the current UTC time truncated to the precision timeMUS
// stores. Records stamped with Now survive a round trip unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

type utcTimeMUS struct{}

func (utcTimeMUS) Marshal(t time.Time, bs []byte) (n int) {
	return raw.TimeUnixMicro.Marshal(t, bs)
}

func (utcTimeMUS) Unmarshal(bs []byte) (t time.Time, n int, err error) {
	t, n, err = raw.TimeUnixMicro.Unmarshal(bs)
	return t.UTC(), n, err
}

func (utcTimeMUS) Size(t time.Time) int {
	return raw.TimeUnixMicro.Size(t)
}

func (utcTimeMUS) Skip(bs []byte) (n int, err error) {
	return raw.TimeUnixMicro.Skip(bs)
}

var (
	stringSliceMUS = ord.NewSliceSer[string](ord.String)
	idSliceMUS     = ord.NewSliceSer[ID](IDMUS)
	vectorMUS      = ord.NewSliceSer[float32](raw.Float32)
	citationsMUS   = ord.NewSliceSer[Citation](CitationMUS)
	timingsMUS     = ord.NewMapSer[string, time.Duration](ord.String, durationMUS{})
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (id ID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

// durationMUS stores durations as varint nanoseconds.
type durationMUS struct{}

func (durationMUS) Marshal(d time.Duration, bs []byte) (n int) {
	return varint.Int64.Marshal(int64(d), bs)
}

func (durationMUS) Unmarshal(bs []byte) (d time.Duration, n int, err error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	return time.Duration(v), n, err
}

func (durationMUS) Size(d time.Duration) int {
	return varint.Int64.Size(int64(d))
}

func (durationMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

type sourceRefMUS struct{}

func (sourceRefMUS) Marshal(s SourceRef, bs []byte) (n int) {
	n = ord.String.Marshal(s.URL, bs)
	n += varint.Int.Marshal(s.Page, bs[n:])
	n += varint.Int.Marshal(s.Offset, bs[n:])
	return
}

func (sourceRefMUS) Unmarshal(bs []byte) (s SourceRef, n int, err error) {
	var n1 int
	s.URL, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	s.Page, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	s.Offset, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (sourceRefMUS) Size(s SourceRef) (size int) {
	size = ord.String.Size(s.URL)
	size += varint.Int.Size(s.Page)
	size += varint.Int.Size(s.Offset)
	return
}

func (sourceRefMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	return
}

type citationMUS struct{}

func (citationMUS) Marshal(c Citation, bs []byte) (n int) {
	n = ord.String.Marshal(c.URL, bs)
	n += ord.String.Marshal(c.Title, bs[n:])
	n += timeMUS.Marshal(c.AccessedAt, bs[n:])
	return
}

func (citationMUS) Unmarshal(bs []byte) (c Citation, n int, err error) {
	var n1 int
	c.URL, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	c.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.AccessedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (citationMUS) Size(c Citation) (size int) {
	size = ord.String.Size(c.URL)
	size += ord.String.Size(c.Title)
	size += timeMUS.Size(c.AccessedAt)
	return
}

func (citationMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = timeMUS.Skip(bs[n:])
	n += n1
	return
}

type atomMUS struct{}

func (atomMUS) Marshal(a Atom, bs []byte) (n int) {
	n = IDMUS.Marshal(a.Id, bs)
	n += varint.Int.Marshal(int(a.Kind), bs[n:])
	n += ord.String.Marshal(a.Title, bs[n:])
	n += ord.String.Marshal(a.Summary, bs[n:])
	n += ord.String.Marshal(a.Body, bs[n:])
	n += ord.String.Marshal(a.Manufacturer, bs[n:])
	n += ord.String.Marshal(a.ProductFamily, bs[n:])
	n += ord.String.Marshal(a.ProductVersion, bs[n:])
	n += varint.Int.Marshal(int(a.Difficulty), bs[n:])
	n += idSliceMUS.Marshal(a.PrerequisiteIds, bs[n:])
	n += idSliceMUS.Marshal(a.RelatedIds, bs[n:])
	n += SourceRefMUS.Marshal(a.Source, bs[n:])
	n += citationsMUS.Marshal(a.Citations, bs[n:])
	n += varint.Int.Marshal(a.QualityScore, bs[n:])
	n += varint.Int.Marshal(int(a.SafetyLevel), bs[n:])
	n += ord.String.Marshal(a.SafetyNotes, bs[n:])
	n += stringSliceMUS.Marshal(a.Keywords, bs[n:])
	n += stringSliceMUS.Marshal(a.Steps, bs[n:])
	n += ord.String.Marshal(a.FaultCode, bs[n:])
	n += vectorMUS.Marshal(a.Vector, bs[n:])
	n += timeMUS.Marshal(a.InsertedAt, bs[n:])
	n += timeMUS.Marshal(a.UpdatedAt, bs[n:])
	return
}

func (atomMUS) Unmarshal(bs []byte) (a Atom, n int, err error) {
	var n1 int
	a.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var kind int
	kind, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Kind = AtomKind(kind)
	a.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Summary, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Body, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Manufacturer, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.ProductFamily, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.ProductVersion, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var difficulty int
	difficulty, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Difficulty = Difficulty(difficulty)
	a.PrerequisiteIds, n1, err = idSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.RelatedIds, n1, err = idSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Source, n1, err = SourceRefMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Citations, n1, err = citationsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.QualityScore, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var safety int
	safety, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.SafetyLevel = SafetyLevel(safety)
	a.SafetyNotes, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Keywords, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Steps, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.FaultCode, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	a.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (atomMUS) Size(a Atom) (size int) {
	size = IDMUS.Size(a.Id)
	size += varint.Int.Size(int(a.Kind))
	size += ord.String.Size(a.Title)
	size += ord.String.Size(a.Summary)
	size += ord.String.Size(a.Body)
	size += ord.String.Size(a.Manufacturer)
	size += ord.String.Size(a.ProductFamily)
	size += ord.String.Size(a.ProductVersion)
	size += varint.Int.Size(int(a.Difficulty))
	size += idSliceMUS.Size(a.PrerequisiteIds)
	size += idSliceMUS.Size(a.RelatedIds)
	size += SourceRefMUS.Size(a.Source)
	size += citationsMUS.Size(a.Citations)
	size += varint.Int.Size(a.QualityScore)
	size += varint.Int.Size(int(a.SafetyLevel))
	size += ord.String.Size(a.SafetyNotes)
	size += stringSliceMUS.Size(a.Keywords)
	size += stringSliceMUS.Size(a.Steps)
	size += ord.String.Size(a.FaultCode)
	size += vectorMUS.Size(a.Vector)
	size += timeMUS.Size(a.InsertedAt)
	size += timeMUS.Size(a.UpdatedAt)
	return
}

func (m atomMUS) Skip(bs []byte) (n int, err error) {
	// Decode and discard; atoms are skipped rarely enough that a dedicated
	// field-skip walk is not worth maintaining alongside Unmarshal.
	_, n, err = m.Unmarshal(bs)
	return
}

type fingerprintMUS struct{}

func (fingerprintMUS) Marshal(f Fingerprint, bs []byte) (n int) {
	n = ord.String.Marshal(f.Hash, bs)
	n += SourceRefMUS.Marshal(f.Source, bs[n:])
	n += timeMUS.Marshal(f.FirstSeenAt, bs[n:])
	return
}

func (fingerprintMUS) Unmarshal(bs []byte) (f Fingerprint, n int, err error) {
	var n1 int
	f.Hash, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	f.Source, n1, err = SourceRefMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f.FirstSeenAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (fingerprintMUS) Size(f Fingerprint) (size int) {
	size = ord.String.Size(f.Hash)
	size += SourceRefMUS.Size(f.Source)
	size += timeMUS.Size(f.FirstSeenAt)
	return
}

func (m fingerprintMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = m.Unmarshal(bs)
	return
}

type ingestionJobMUS struct{}

func (ingestionJobMUS) Marshal(j IngestionJob, bs []byte) (n int) {
	n = ord.String.Marshal(j.Id, bs)
	n += SourceRefMUS.Marshal(j.Source, bs[n:])
	n += stringSliceMUS.Marshal(j.Hints, bs[n:])
	n += varint.Int.Marshal(j.Priority, bs[n:])
	n += varint.Int.Marshal(int(j.Status), bs[n:])
	n += timingsMUS.Marshal(j.StageTimings, bs[n:])
	n += varint.Int.Marshal(j.AtomsCreated, bs[n:])
	n += varint.Int.Marshal(j.AtomsFailed, bs[n:])
	n += stringSliceMUS.Marshal(j.Errors, bs[n:])
	n += timeMUS.Marshal(j.EnqueuedAt, bs[n:])
	n += timeMUS.Marshal(j.ClaimedAt, bs[n:])
	n += ord.String.Marshal(j.ClaimedBy, bs[n:])
	n += timeMUS.Marshal(j.Deadline, bs[n:])
	n += timeMUS.Marshal(j.FinishedAt, bs[n:])
	return
}

func (ingestionJobMUS) Unmarshal(bs []byte) (j IngestionJob, n int, err error) {
	var n1 int
	j.Id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	j.Source, n1, err = SourceRefMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.Hints, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.Priority, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var status int
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.Status = JobStatus(status)
	j.StageTimings, n1, err = timingsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.AtomsCreated, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.AtomsFailed, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.Errors, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.EnqueuedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.ClaimedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.ClaimedBy, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.Deadline, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.FinishedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (ingestionJobMUS) Size(j IngestionJob) (size int) {
	size = ord.String.Size(j.Id)
	size += SourceRefMUS.Size(j.Source)
	size += stringSliceMUS.Size(j.Hints)
	size += varint.Int.Size(j.Priority)
	size += varint.Int.Size(int(j.Status))
	size += timingsMUS.Size(j.StageTimings)
	size += varint.Int.Size(j.AtomsCreated)
	size += varint.Int.Size(j.AtomsFailed)
	size += stringSliceMUS.Size(j.Errors)
	size += timeMUS.Size(j.EnqueuedAt)
	size += timeMUS.Size(j.ClaimedAt)
	size += ord.String.Size(j.ClaimedBy)
	size += timeMUS.Size(j.Deadline)
	size += timeMUS.Size(j.FinishedAt)
	return
}

func (m ingestionJobMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = m.Unmarshal(bs)
	return
}

type failedIngestionMUS struct{}

func (failedIngestionMUS) Marshal(f FailedIngestion, bs []byte) (n int) {
	n = IDMUS.Marshal(f.Id, bs)
	n += SourceRefMUS.Marshal(f.Source, bs[n:])
	n += ord.String.Marshal(f.Stage, bs[n:])
	n += ord.String.Marshal(f.Message, bs[n:])
	n += varint.Int.Marshal(f.RetryCount, bs[n:])
	n += timeMUS.Marshal(f.NextRetryAt, bs[n:])
	n += ord.Bool.Marshal(f.Resolved, bs[n:])
	n += timeMUS.Marshal(f.InsertedAt, bs[n:])
	n += timeMUS.Marshal(f.UpdatedAt, bs[n:])
	return
}

func (failedIngestionMUS) Unmarshal(bs []byte) (f FailedIngestion, n int, err error) {
	var n1 int
	f.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	f.Source, n1, err = SourceRefMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f.Stage, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f.Message, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f.RetryCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f.NextRetryAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f.Resolved, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (failedIngestionMUS) Size(f FailedIngestion) (size int) {
	size = IDMUS.Size(f.Id)
	size += SourceRefMUS.Size(f.Source)
	size += ord.String.Size(f.Stage)
	size += ord.String.Size(f.Message)
	size += varint.Int.Size(f.RetryCount)
	size += timeMUS.Size(f.NextRetryAt)
	size += ord.Bool.Size(f.Resolved)
	size += timeMUS.Size(f.InsertedAt)
	size += timeMUS.Size(f.UpdatedAt)
	return
}

func (m failedIngestionMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = m.Unmarshal(bs)
	return
}

type reviewEntryMUS struct{}

func (reviewEntryMUS) Marshal(r ReviewEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(r.Id, bs)
	n += AtomMUS.Marshal(r.Atom, bs[n:])
	n += varint.Int.Marshal(int(r.Decision), bs[n:])
	n += timeMUS.Marshal(r.InsertedAt, bs[n:])
	n += timeMUS.Marshal(r.DecidedAt, bs[n:])
	return
}

func (reviewEntryMUS) Unmarshal(bs []byte) (r ReviewEntry, n int, err error) {
	var n1 int
	r.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	r.Atom, n1, err = AtomMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var decision int
	decision, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Decision = ReviewDecision(decision)
	r.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.DecidedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (reviewEntryMUS) Size(r ReviewEntry) (size int) {
	size = IDMUS.Size(r.Id)
	size += AtomMUS.Size(r.Atom)
	size += varint.Int.Size(int(r.Decision))
	size += timeMUS.Size(r.InsertedAt)
	size += timeMUS.Size(r.DecidedAt)
	return
}

func (m reviewEntryMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = m.Unmarshal(bs)
	return
}

type relationMUS struct{}

func (relationMUS) Marshal(r Relation, bs []byte) (n int) {
	n = IDMUS.Marshal(r.Id, bs)
	n += IDMUS.Marshal(r.FromId, bs[n:])
	n += IDMUS.Marshal(r.ToId, bs[n:])
	n += varint.Int.Marshal(int(r.Type), bs[n:])
	n += ord.Bool.Marshal(r.Superseded, bs[n:])
	n += timeMUS.Marshal(r.InsertedAt, bs[n:])
	n += timeMUS.Marshal(r.UpdatedAt, bs[n:])
	return
}

func (relationMUS) Unmarshal(bs []byte) (r Relation, n int, err error) {
	var n1 int
	r.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	r.FromId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.ToId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var typ int
	typ, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Type = RelationType(typ)
	r.Superseded, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (relationMUS) Size(r Relation) (size int) {
	size = IDMUS.Size(r.Id)
	size += IDMUS.Size(r.FromId)
	size += IDMUS.Size(r.ToId)
	size += varint.Int.Size(int(r.Type))
	size += ord.Bool.Size(r.Superseded)
	size += timeMUS.Size(r.InsertedAt)
	size += timeMUS.Size(r.UpdatedAt)
	return
}

func (m relationMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = m.Unmarshal(bs)
	return
}
