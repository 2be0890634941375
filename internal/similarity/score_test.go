package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bioport/internal/naming"
	"bioport/internal/subject"
	"bioport/pkg/domain"
)

func makeSubject(id, name, sex string) *subject.Subject {
	subj := &subject.Subject{
		ID:          domain.SubjectID(id),
		DisplayName: name,
		SortKey:     naming.SortKey(name),
		FamilyName:  naming.FamilyName(name),
		Sex:         sex,
	}
	family := make(map[string]bool)
	for _, t := range naming.FamilyNameTokens(name) {
		family[t] = true
	}
	for _, word := range naming.Tokenize(name) {
		if len([]rune(word)) < 2 || naming.IsTussenvoegsel(word) {
			continue
		}
		subj.PhoneticKeys = append(subj.PhoneticKeys, subject.Token{
			Value:          naming.PhoneticKey(word),
			FromFamilyName: family[word],
		})
	}
	return subj
}

func TestScoreIdenticalNames(t *testing.T) {
	a := makeSubject("10000001", "Jan de Vries", "m")
	b := makeSubject("10000002", "Jan de Vries", "m")
	assert.InDelta(t, 1.0, Score(a, b), 0.001)
}

func TestScoreCaseAndSpellingVariants(t *testing.T) {
	a := makeSubject("10000001", "Jan de Vries", "")
	b := makeSubject("10000002", "jan de vries", "")
	assert.Greater(t, Score(a, b), 0.95)

	c := makeSubject("10000003", "Jan de Fries", "")
	assert.Greater(t, Score(a, c), 0.85)
}

func TestScoreSexConflictIsFatal(t *testing.T) {
	a := makeSubject("10000001", "Jan de Vries", "m")
	b := makeSubject("10000002", "Jan de Vries", "f")
	assert.Equal(t, 0.0, Score(a, b))
}

func TestScoreUnknownSexDoesNotPenalize(t *testing.T) {
	a := makeSubject("10000001", "Jan de Vries", "m")
	b := makeSubject("10000002", "Jan de Vries", "")
	assert.InDelta(t, 1.0, Score(a, b), 0.001)
}

func TestScoreDisjointBirthDates(t *testing.T) {
	a := makeSubject("10000001", "Jan de Vries", "m")
	a.BirthMin, a.BirthMax = "1820", "1825"
	b := makeSubject("10000002", "Jan de Vries", "m")
	b.BirthMin, b.BirthMax = "1870", "1875"

	assert.Less(t, Score(a, b), 0.5)
}

func TestScoreOverlappingPartialDates(t *testing.T) {
	a := makeSubject("10000001", "Jan de Vries", "m")
	a.BirthMin, a.BirthMax = "1821", "1821"
	b := makeSubject("10000002", "Jan de Vries", "m")
	b.BirthMin, b.BirthMax = "1821-03", "1821-03"

	assert.InDelta(t, 1.0, Score(a, b), 0.001)
}

func TestScoreDifferentFamilies(t *testing.T) {
	a := makeSubject("10000001", "Jan de Vries", "m")
	b := makeSubject("10000002", "Pieter Bakker", "m")
	assert.Less(t, Score(a, b), 0.5)
}

func TestScoreDifferentBirthPlacesDampen(t *testing.T) {
	a := makeSubject("10000001", "Jan de Vries", "m")
	a.BirthPlace = "Leiden"
	b := makeSubject("10000002", "Jan de Vries", "m")
	b.BirthPlace = "Amsterdam"

	score := Score(a, b)
	assert.Greater(t, score, 0.8)
	assert.Less(t, score, 1.0)
}
