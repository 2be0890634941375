// Package subject maintains the subject aggregate: the merged view of
// every document attached to one identifier, plus the name tokens and
// phonetic keys the similarity engine searches on. Aggregates are a
// projection; documents remain the source of truth and Rebuild
// recomputes the row from them.
package subject

import (
	"context"
	"time"

	"bioport/pkg/domain"
)

// Editorial status of a subject. The numbering is part of the public
// data set and must stay stable.
const (
	StatusNew            = 1
	StatusReviewed       = 2
	StatusDifficult      = 3
	StatusFinished       = 4
	StatusMessy          = 5
	StatusTooLittleInfo  = 7
	StatusFamilyMember   = 8
	StatusReferenceEntry = 9
	StatusNeedsResearch  = 10
	StatusNotDutch       = 11
	StatusNotRelevant    = 12
)

// excludedFromMatching lists statuses whose subjects never appear as
// match candidates: messy records and reference-only entries.
var excludedFromMatching = map[int]bool{
	StatusMessy:          true,
	StatusReferenceEntry: true,
}

// Token is one searchable name token of a subject.
type Token struct {
	Value          string
	FromFamilyName bool
}

// Subject is the aggregate row for one live identifier.
type Subject struct {
	ID          domain.SubjectID
	DisplayName string
	SortKey     string
	FamilyName  string
	Sex         string

	BirthMin   string
	BirthMax   string
	DeathMin   string
	DeathMax   string
	BirthPlace string
	DeathPlace string

	Status  int
	Sources []string

	NameTokens   []Token
	PhoneticKeys []Token

	UpdatedAt time.Time
}

// EligibleForMatching reports whether the subject's status allows it
// to participate in similarity matching.
func (s *Subject) EligibleForMatching() bool {
	return !excludedFromMatching[s.Status]
}

// Filter narrows subject listings. Zero fields match all.
type Filter struct {
	Status      int
	Sex         string
	SourceID    string
	NameToken   string
	PhoneticKey string
	// FamilyNameOnly restricts NameToken and PhoneticKey matches to
	// tokens derived from the family name.
	FamilyNameOnly bool
	// Year bounds match when the subject's birth or death interval
	// overlaps the range. Subjects without the date drop out.
	BirthYearMin int
	BirthYearMax int
	DeathYearMin int
	DeathYearMax int

	Start int
	Size  int
}

// YearOf extracts the year from a partial ISO date ("1872",
// "1872-03-14"). Zero for empty or malformed values.
func YearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year := 0
	for _, c := range date[:4] {
		if c < '0' || c > '9' {
			return 0
		}
		year = year*10 + int(c-'0')
	}
	return year
}

// Store persists subject aggregates.
type Store interface {
	// Upsert replaces the aggregate and its token and key rows.
	Upsert(ctx context.Context, subj Subject) error
	// Get returns the aggregate, sentinel.ErrNotFound when unknown.
	Get(ctx context.Context, id domain.SubjectID) (*Subject, error)
	// Delete removes the aggregate and its derived rows.
	Delete(ctx context.Context, id domain.SubjectID) error
	// List returns aggregates matching the filter ordered by sort key.
	List(ctx context.Context, f Filter) ([]Subject, error)
	// IDsByPhoneticKey returns ids of subjects carrying the key,
	// optionally restricted to family-name keys.
	IDsByPhoneticKey(ctx context.Context, key string, familyOnly bool) ([]domain.SubjectID, error)
}
