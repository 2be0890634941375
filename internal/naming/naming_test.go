package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldStripsDiacritics(t *testing.T) {
	assert.Equal(t, "therese", Fold("Thérèse"))
	assert.Equal(t, "muller", Fold("Müller"))
	assert.Equal(t, "cafe", Fold("Café"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"jan", "de", "vries"}, Tokenize("Jan de Vries"))
	assert.Equal(t, []string{"s", "gravenhage"}, Tokenize("'s-Gravenhage"))
	assert.Empty(t, Tokenize("  "))
}

func TestFamilyNameTokens(t *testing.T) {
	assert.Equal(t, []string{"de", "vries"}, FamilyNameTokens("Jan de Vries"))
	assert.Equal(t, []string{"van", "der", "berg"}, FamilyNameTokens("Anna van der Berg"))
	assert.Equal(t, []string{"rembrandt"}, FamilyNameTokens("Rembrandt"))
	assert.Nil(t, FamilyNameTokens(""))
}

func TestFamilyName(t *testing.T) {
	assert.Equal(t, "vries", FamilyName("Jan de Vries"))
	assert.Equal(t, "berg", FamilyName("Anna van der Berg"))
	assert.Equal(t, "rembrandt", FamilyName("Rembrandt"))
}

func TestSortKey(t *testing.T) {
	assert.Equal(t, "vries, jan de", SortKey("Jan de Vries"))
	assert.Equal(t, "berg, anna van der", SortKey("Anna van der Berg"))
	assert.Equal(t, "rembrandt", SortKey("Rembrandt"))
}

func TestPhoneticKeyCollapsesSpellingVariants(t *testing.T) {
	variants := [][2]string{
		{"Vries", "Fries"},
		{"Zeeman", "Seeman"},
		{"Thijssen", "Tijsen"},
		{"Dijk", "Dyk"},
		{"Bakker", "Backer"},
		{"Visscher", "Fisser"},
	}
	for _, pair := range variants {
		assert.Equal(t, PhoneticKey(pair[0]), PhoneticKey(pair[1]),
			"%s and %s should share a key", pair[0], pair[1])
	}
}

func TestPhoneticKeyCaseAndDiacriticInsensitive(t *testing.T) {
	assert.Equal(t, PhoneticKey("de Vries"), PhoneticKey("De Vries"))
	assert.Equal(t, PhoneticKey("Müller"), PhoneticKey("Muller"))
}

func TestKeysSkipInitialsAndPrepositions(t *testing.T) {
	keys := Keys("J. van der Vries")
	assert.Equal(t, []string{PhoneticKey("vries")}, keys)
}

func TestFamilyKeys(t *testing.T) {
	assert.Equal(t, []string{PhoneticKey("vries")}, FamilyKeys("Jan de Vries"))
	assert.Equal(t, []string{PhoneticKey("berg")}, FamilyKeys("Anna van der Berg"))
}
