package naming

import "strings"

// Dutch spelling variants that must land on the same phonetic key.
// Applied longest-match-first on the folded token.
var phoneticDigraphs = []struct{ from, to string }{
	{"tsch", "s"},
	{"isch", "is"},
	{"sch", "s"},
	{"ph", "f"},
	{"ch", "g"},
	{"ck", "k"},
	{"kx", "ks"},
	{"dt", "t"},
	{"td", "t"},
	{"sz", "s"},
	{"tz", "t"},
	{"th", "t"},
	{"qu", "kw"},
	{"ij", "y"},
	{"ei", "y"},
	{"gh", "g"},
}

var phoneticLetters = map[byte]byte{
	'z': 's',
	'v': 'f',
	'w': 'f',
	'q': 'k',
	'x': 'k',
	'd': 't',
	'b': 'p',
	'i': 'y',
}

// PhoneticKey reduces a single folded token to its Dutch phonetic
// form: spelling variants like Vries/Fries, Zeeman/Seeman and
// Thijssen/Tijsen collapse to one key. Empty for empty input.
func PhoneticKey(token string) string {
	s := Fold(token)
	if s == "" {
		return ""
	}

	for _, d := range phoneticDigraphs {
		s = strings.ReplaceAll(s, d.from, d.to)
	}

	// c sounds like k before a back vowel, like s otherwise.
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 'c' {
			if i+1 < len(s) && (s[i+1] == 'e' || s[i+1] == 'i' || s[i+1] == 'y') {
				c = 's'
			} else {
				c = 'k'
			}
		}
		if mapped, ok := phoneticLetters[c]; ok {
			c = mapped
		}
		b.WriteByte(c)
	}
	s = b.String()

	// Collapse doubled letters, drop h entirely.
	b.Reset()
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 'h' {
			continue
		}
		if c == prev {
			continue
		}
		b.WriteByte(c)
		prev = c
	}
	return b.String()
}

// Keys produces the deduplicated phonetic keys for a full name.
// Single-letter tokens are treated as initials and skipped, as are
// name prepositions; what remains are the tokens worth matching on.
func Keys(name string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, token := range Tokenize(name) {
		if len([]rune(token)) < 2 || IsTussenvoegsel(token) {
			continue
		}
		key := PhoneticKey(token)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// FamilyKeys produces the phonetic keys of the family-name tokens
// only. This is the bucket the similarity engine pairs candidates on.
func FamilyKeys(name string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, token := range FamilyNameTokens(name) {
		if len([]rune(token)) < 2 || IsTussenvoegsel(token) {
			continue
		}
		key := PhoneticKey(token)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
