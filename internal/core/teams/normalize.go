// Package teams matches configured team names against feed names.
package teams

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Aliases maps normalized short forms to the canonical normalized name.
var Aliases = map[string]string{
	"man utd":          "manchester united",
	"man united":       "manchester united",
	"man city":         "manchester city",
	"spurs":            "tottenham hotspur",
	"tottenham":        "tottenham hotspur",
	"wolves":           "wolverhampton wanderers",
	"newcastle":        "newcastle united",
	"west ham":         "west ham united",
	"brighton":         "brighton & hove albion",
	"nottm forest":     "nottingham forest",
	"sheff utd":        "sheffield united",
	"sheffield utd":    "sheffield united",
	"qpr":              "queens park rangers",
	"psg":              "paris saint germain",
	"paris sg":         "paris saint germain",
	"paris st germain": "paris saint germain",
	"inter":            "inter milan",
	"internazionale":   "inter milan",
	"atletico":         "atletico madrid",
	"atl. madrid":      "atletico madrid",
	"bayern":           "bayern munich",
	"bayern munchen":   "bayern munich",
}

// Normalize lowercases, strips diacritics, collapses whitespace,
// then resolves through the alias map.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = stripDiacritics(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = collapseWhitespace(s)
	if canonical, ok := Aliases[s]; ok {
		return canonical
	}
	return s
}

// Same reports whether two names refer to the same team.
func Same(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) { // Mn = Mark, Nonspacing (combining accents)
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
