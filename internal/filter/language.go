package filter

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	namesOnce sync.Once
	byName    map[string]string
)

// buildNames indexes the English display name of every two-letter ISO 639-1
// base language, so briefs may say "English" as well as "en".
func buildNames() {
	byName = make(map[string]string)
	namer := display.English.Languages()
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			code := string([]rune{a, b})
			base, err := language.ParseBase(code)
			if err != nil || base.String() != code {
				continue
			}
			name := strings.ToLower(namer.Name(base))
			if name == "" {
				continue
			}
			if _, taken := byName[name]; !taken {
				byName[name] = code
			}
		}
	}
}

// NormalizeLanguage maps a language name or ISO 639 code to a lowercase
// ISO 639-1 code. Unknown input returns "".
func NormalizeLanguage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	namesOnce.Do(buildNames)
	if code, ok := byName[s]; ok {
		return code
	}
	if tag, err := language.Parse(s); err == nil {
		base, _ := tag.Base()
		return strings.ToLower(base.String())
	}
	return ""
}

// NormalizeLanguages normalizes a list, dropping entries that do not resolve
// and duplicates.
func NormalizeLanguages(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		code := NormalizeLanguage(s)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
