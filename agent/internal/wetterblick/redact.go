package wetterblick

import (
	"regexp"
	"strings"
)

var pwParam = regexp.MustCompile(`pw=[^&]*`)

// RedactURL masks the pw query value in rawURL and any other literal
// occurrence of password, so the result never contains password.
func RedactURL(rawURL, password string) string {
	out := pwParam.ReplaceAllString(rawURL, "pw=XXX")
	if password == "" {
		return out
	}
	mask := maskFor(password)
	out = strings.ReplaceAll(out, password, mask)
	for mask == "" && strings.Contains(out, password) {
		out = strings.ReplaceAll(out, password, "")
	}
	return out
}

// maskFor returns a mask built from a character that does not occur in
// password. A replacement made of such characters cannot overlap a new
// occurrence of password. It returns "" when password uses every candidate.
func maskFor(password string) string {
	for _, c := range "X*#~-_." {
		if !strings.ContainsRune(password, c) {
			return strings.Repeat(string(c), 3)
		}
	}
	return ""
}
