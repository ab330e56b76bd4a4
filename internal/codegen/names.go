package codegen

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExportName turns an arbitrary name into an exported Go identifier:
// "get_value" becomes "GetValue", "2d-point" becomes "T2DPoint". It returns
// "" when s has no letters or digits.
func ExportName(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	caser := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range words {
		b.WriteString(caser.String(w))
	}
	out := b.String()
	if r := []rune(out)[0]; unicode.IsDigit(r) || !unicode.IsUpper(r) {
		out = "T" + out
	}
	return out
}

// Uniquer hands out identifiers that do not collide with earlier ones by
// appending a numeric suffix.
type Uniquer struct {
	used map[string]bool
}

// Unique returns name, or name2, name3... if name was already handed out.
func (u *Uniquer) Unique(name string) string {
	if u.used == nil {
		u.used = make(map[string]bool)
	}
	out := name
	for i := 2; u.used[out]; i++ {
		out = name + strconv.Itoa(i)
	}
	u.used[out] = true
	return out
}
