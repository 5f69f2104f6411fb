package matching

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Candidate is the person-name decomposition of an uploaded file name.
// It exists only as matcher input and is never persisted.
type Candidate struct {
	// SurnameTokens and GivenTokens are a best-effort ordered guess at
	// the name shape. The matcher compares token bags, so a wrong guess
	// only affects the specificity bonus, never the coverage score.
	SurnameTokens []string `json:"surname_tokens"`
	GivenTokens   []string `json:"given_tokens"`

	// Tokens is the full normalized bag, shape-independent.
	Tokens []string `json:"tokens"`

	RawFileName string `json:"raw_file_name"`
	Display     string `json:"display"`
}

// Resolve turns a raw file name into a name candidate. It is pure and
// total: malformed names degrade to a short token bag, an empty name
// yields an empty bag that is guaranteed not to match anything.
//
// Accepted shapes: "Rosiello.md", "Rosiello_Ana.md", "Rosiello Ana.md",
// "Ana Rosiello.md" and compound surnames like "Di_Bernardo_Juan.md".
// The shape is ambiguous from the file name alone, so Resolve emits all
// tokens plus an ordered guess and leaves disambiguation to the matcher.
func Resolve(fileName string) Candidate {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	separators := strings.NewReplacer("_", " ", "-", " ")
	fields := strings.Fields(separators.Replace(stem))

	candidate := Candidate{
		RawFileName: fileName,
		Display:     strings.Join(fields, " "),
	}

	for _, field := range fields {
		if token := normalizeToken(field); token != "" {
			candidate.Tokens = append(candidate.Tokens, token)
		}
	}

	switch len(candidate.Tokens) {
	case 0:
	case 1:
		candidate.SurnameTokens = candidate.Tokens[:1]
	case 2:
		candidate.SurnameTokens = candidate.Tokens[:1]
		candidate.GivenTokens = candidate.Tokens[1:]
	default:
		// Three or more tokens lean compound-surname-first
		// ("Di Bernardo Juan"), matching the upload convention.
		candidate.SurnameTokens = candidate.Tokens[:2]
		candidate.GivenTokens = candidate.Tokens[2:]
	}

	return candidate
}

// tokenizeName normalizes a roster display name into the same token bag
// representation used for file name candidates. Commas in
// "Surname, Given" style names are treated as separators.
func tokenizeName(displayName string) []string {
	separators := strings.NewReplacer(",", " ", "_", " ", "-", " ")
	fields := strings.Fields(separators.Replace(displayName))

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if token := normalizeToken(field); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// normalizeToken folds diacritics, lowercases and strips everything
// outside [a-z0-9] so that "García" and "garcia" compare equal.
func normalizeToken(s string) string {
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
