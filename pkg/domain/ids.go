package domain

import (
	"strings"

	dErrors "bioport/pkg/domain-errors"
)

// SubjectIDLength is the fixed length of a subject identifier token.
const SubjectIDLength = 8

// EditorialSourceID is the reserved source id for documents authored
// internally by editors (merge records and manual additions). Editorial
// documents never count towards source trust.
const EditorialSourceID = "bioport"

// SubjectID is the canonical identifier of one real-world person.
// It is an opaque fixed-length numeric token minted by the identifier
// registry; it is never deleted, only retired via a redirect.
type SubjectID string

func (id SubjectID) String() string { return string(id) }

func (id SubjectID) IsZero() bool { return id == "" }

// ParseSubjectID validates an identifier received at a trust boundary.
func ParseSubjectID(s string) (SubjectID, error) {
	if len(s) != SubjectIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject id must be exactly 8 characters")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "subject id must be numeric")
		}
	}
	return SubjectID(s), nil
}

// Pair is a canonicalized unordered pair of subject ids: Low sorts
// strictly before High lexicographically unless the pair is a self-pair.
// Canonicalization guarantees each unordered pair has one representation
// in the similarity cache and the witness tables.
type Pair struct {
	Low  SubjectID
	High SubjectID
}

// PairOf canonicalizes two ids into a Pair.
func PairOf(a, b SubjectID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

// IsSelf reports whether both endpoints are the same subject. Self-pairs
// are the "similarity already computed" markers in the cache.
func (p Pair) IsSelf() bool { return p.Low == p.High }

// Contains reports whether id is one of the pair's endpoints.
func (p Pair) Contains(id SubjectID) bool { return p.Low == id || p.High == id }

// DocumentKey identifies one versioned document: the contributing source
// plus the identifier the document carries within that source.
type DocumentKey struct {
	SourceID string
	LocalID  string
}

func (k DocumentKey) String() string { return k.SourceID + "/" + k.LocalID }

func (k DocumentKey) IsZero() bool { return k.SourceID == "" && k.LocalID == "" }

// IsEditorial reports whether the document is internally authored.
func (k DocumentKey) IsEditorial() bool { return k.SourceID == EditorialSourceID }

// ParseDocumentKey splits "source/local" back into a DocumentKey. The
// local part may itself contain slashes (e.g. "vdaa/w0269").
func ParseDocumentKey(s string) (DocumentKey, error) {
	source, local, ok := strings.Cut(s, "/")
	if !ok || source == "" || local == "" {
		return DocumentKey{}, dErrors.New(dErrors.CodeInvalidInput, "document key must have the form source/local")
	}
	return DocumentKey{SourceID: source, LocalID: local}, nil
}

// EditorialKey is the key of a subject's editorial document.
func EditorialKey(id SubjectID) DocumentKey {
	return DocumentKey{SourceID: EditorialSourceID, LocalID: string(id)}
}
