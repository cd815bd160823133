package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateAtom(t *testing.T) {
	valid := Atom{
		Id:      1,
		Kind:    KindFault,
		Title:   "F0003 undervoltage trip",
		Summary: "The drive trips F0003 when DC link voltage falls below threshold.",
		Body:    "Check mains supply and input fuses before resetting.",
		Source:  SourceRef{URL: "https://example.com/g120-manual"},
	}

	tests := []struct {
		name    string
		mutate  func(a *Atom)
		wantErr error
	}{
		{name: "valid atom", mutate: func(a *Atom) {}, wantErr: nil},
		{
			name:    "empty body specification is valid",
			mutate:  func(a *Atom) { a.Kind = KindSpecification; a.Body = "" },
			wantErr: nil,
		},
		{
			name:    "unknown kind",
			mutate:  func(a *Atom) { a.Kind = 42 },
			wantErr: ErrInvalidKind,
		},
		{
			name:    "empty title",
			mutate:  func(a *Atom) { a.Title = "" },
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "empty summary",
			mutate:  func(a *Atom) { a.Summary = "" },
			wantErr: ErrEmptySummary,
		},
		{
			name:    "missing source",
			mutate:  func(a *Atom) { a.Source = SourceRef{} },
			wantErr: ErrEmptySource,
		},
		{
			name:    "quality score above range",
			mutate:  func(a *Atom) { a.QualityScore = 101 },
			wantErr: ErrQualityScoreRange,
		},
		{
			name:    "quality score below range",
			mutate:  func(a *Atom) { a.QualityScore = -1 },
			wantErr: ErrQualityScoreRange,
		},
		{
			name:    "invalid safety level",
			mutate:  func(a *Atom) { a.SafetyLevel = 9 },
			wantErr: ErrInvalidSafetyLevel,
		},
		{
			name:    "invalid difficulty",
			mutate:  func(a *Atom) { a.Difficulty = 9 },
			wantErr: ErrInvalidDifficulty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atom := valid
			tt.mutate(&atom)
			err := ValidateAtom(&atom)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateAtom() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAtom() = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidAtom) {
				t.Errorf("ValidateAtom() error does not wrap ErrInvalidAtom: %v", err)
			}
		})
	}
}

func TestValidateAtom_Nil(t *testing.T) {
	if err := ValidateAtom(nil); !errors.Is(err, ErrInvalidAtom) {
		t.Errorf("ValidateAtom(nil) = %v, want ErrInvalidAtom", err)
	}
}

func TestValidateRelation(t *testing.T) {
	tests := []struct {
		name     string
		relation Relation
		wantErr  error
	}{
		{
			name:     "valid relation",
			relation: Relation{FromId: 1, ToId: 2, Type: RelFaultOf},
			wantErr:  nil,
		},
		{
			name:     "missing endpoint",
			relation: Relation{FromId: 0, ToId: 2, Type: RelFaultOf},
			wantErr:  ErrInvalidRelation,
		},
		{
			name:     "self relation",
			relation: Relation{FromId: 3, ToId: 3, Type: RelPartOf},
			wantErr:  ErrSelfRelation,
		},
		{
			name:     "unknown type",
			relation: Relation{FromId: 1, ToId: 2, Type: 99},
			wantErr:  ErrInvalidRelationType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelation(&tt.relation)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRelation() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRelation() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJob(t *testing.T) {
	job := IngestionJob{
		Id:         "0f1e9b68-1111-4a55-a1af-000000000001",
		Source:     SourceRef{URL: "https://example.com/manual"},
		Status:     JobPending,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := ValidateJob(&job); err != nil {
		t.Errorf("ValidateJob() = %v, want nil", err)
	}

	missing := job
	missing.Id = ""
	if err := ValidateJob(&missing); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("ValidateJob(no id) = %v, want ErrInvalidJob", err)
	}

	badStatus := job
	badStatus.Status = 77
	if err := ValidateJob(&badStatus); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("ValidateJob(bad status) = %v, want ErrInvalidJob", err)
	}
}
