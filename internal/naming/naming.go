// Package naming normalizes Dutch personal names: tokenization,
// diacritic folding, family-name guessing and a Dutch phonetic key
// used by the similarity engine to bucket candidate subjects.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tussenvoegsels are the Dutch name prepositions. They sit between
// given names and the family name, carry no phonetic weight and are
// excluded from candidate keys.
var tussenvoegsels = map[string]bool{
	"van": true, "de": true, "der": true, "den": true, "des": true,
	"het": true, "ten": true, "ter": true, "te": true, "tot": true,
	"toe": true, "uit": true, "in": true, "op": true, "aan": true,
	"bij": true, "onder": true, "over": true, "voor": true,
	"la": true, "le": true, "du": true, "von": true, "und": true,
	"t": true, "d": true, "s": true, "en": true,
}

// IsTussenvoegsel reports whether the lowercased token is a name
// preposition.
func IsTussenvoegsel(token string) bool {
	return tussenvoegsels[strings.ToLower(token)]
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold lowercases and strips diacritics: "Thérèse" becomes "therese".
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize splits a name into folded word tokens. Punctuation and
// digits separate tokens, so "'s-Gravenhage" yields "s", "gravenhage".
func Tokenize(name string) []string {
	folded := Fold(name)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// FamilyNameTokens returns the tokens that belong to the family name:
// the trailing run of tussenvoegsels plus the final token. "Jan de
// Vries" yields ["de", "vries"]; a single-token name is its own family
// name.
func FamilyNameTokens(name string) []string {
	tokens := Tokenize(name)
	if len(tokens) == 0 {
		return nil
	}
	start := len(tokens) - 1
	for start > 0 && IsTussenvoegsel(tokens[start-1]) {
		start--
	}
	// A name that is nothing but prepositions keeps its last token.
	if start == len(tokens)-1 && IsTussenvoegsel(tokens[start]) && len(tokens) > 1 {
		return tokens[len(tokens)-1:]
	}
	return tokens[start:]
}

// FamilyName returns the bare family name without prepositions.
func FamilyName(name string) string {
	tokens := FamilyNameTokens(name)
	for i := len(tokens) - 1; i >= 0; i-- {
		if !IsTussenvoegsel(tokens[i]) {
			return tokens[i]
		}
	}
	if len(tokens) > 0 {
		return tokens[len(tokens)-1]
	}
	return ""
}

// SortKey renders a name family-name first for alphabetic listings:
// "Jan de Vries" becomes "vries, jan de".
func SortKey(name string) string {
	tokens := Tokenize(name)
	if len(tokens) == 0 {
		return ""
	}
	family := FamilyNameTokens(name)
	head := tokens[:len(tokens)-len(family)]

	var b strings.Builder
	b.WriteString(family[len(family)-1])
	rest := make([]string, 0, len(tokens)-1)
	rest = append(rest, head...)
	rest = append(rest, family[:len(family)-1]...)
	if len(rest) > 0 {
		b.WriteString(", ")
		b.WriteString(strings.Join(rest, " "))
	}
	return b.String()
}
