package ocr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-=]{3,}[ \t]*$`)
)

var spaceReplacer = strings.NewReplacer(
	"\u00a0", " ", // no-break space
	"\u202f", " ", // narrow no-break space
	"\u2009", " ", // thin space
	"\u00ad", "", // soft hyphen
	"\ufeff", "", // BOM
)

// Normalize collapses noisy whitespace and composes Unicode to NFC so that
// Cyrillic letters produced as base+combining marks match the rule patterns.
// Line breaks and form feeds (page breaks) are kept.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	s = spaceReplacer.Replace(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	// trim trailing spaces on lines
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
