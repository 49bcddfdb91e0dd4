package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/contracts-tracker/constants"
)

// Transform turns a match (m[0] is the whole match, m[1:] the groups) into
// the field value. An empty result counts as no match.
type Transform func(m []string) (string, error)

var genitiveMonths = map[string]time.Month{
	"января": time.January, "февраля": time.February, "марта": time.March,
	"апреля": time.April, "мая": time.May, "июня": time.June,
	"июля": time.July, "августа": time.August, "сентября": time.September,
	"октября": time.October, "ноября": time.November, "декабря": time.December,
}

var (
	reDecimal   = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	reSeparator = regexp.MustCompile(`[\s\x{00a0}]+`)
)

func group(m []string, g int) string {
	if g < len(m) {
		return m[g]
	}
	return ""
}

// collapse joins whitespace runs (including line breaks) into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textOf is the default transform: the group with whitespace collapsed and
// trailing punctuation trimmed.
func textOf(g int) Transform {
	return func(m []string) (string, error) {
		return strings.TrimRight(collapse(group(m, g)), " ,;:."), nil
	}
}

// attachmentTitle reads a title from its first line and keeps following a
// wrapped title only while a «quote» is open or the next line starts in lower
// case. A ';' ends the title.
func attachmentTitle(g int) Transform {
	return func(m []string) (string, error) {
		var b strings.Builder
		for i, ln := range strings.Split(group(m, g), "\n") {
			ln = strings.TrimSpace(ln)
			if i > 0 {
				if ln == "" || strings.HasPrefix(ln, "Приложение") {
					break
				}
				sofar := b.String()
				first, _ := utf8.DecodeRuneInString(ln)
				if strings.Count(sofar, "«") <= strings.Count(sofar, "»") && !unicode.IsLower(first) {
					break
				}
				b.WriteByte(' ')
			}
			if head, _, found := strings.Cut(ln, ";"); found {
				b.WriteString(head)
				break
			}
			b.WriteString(ln)
		}
		return textOf(1)([]string{"", b.String()})
	}
}

// noSpaces drops every whitespace rune, e.g. a permit number broken across lines.
func noSpaces(g int) Transform {
	return func(m []string) (string, error) {
		return reSeparator.ReplaceAllString(group(m, g), ""), nil
	}
}

// amount strips thousands separators and converts a comma decimal point.
func amount(g int) Transform {
	return func(m []string) (string, error) {
		return normalizeDecimal(group(m, g))
	}
}

func normalizeDecimal(raw string) (string, error) {
	s := reSeparator.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return "", nil
	}
	if !reDecimal.MatchString(s) {
		return "", fmt.Errorf("not a decimal number: %q", raw)
	}
	return s, nil
}

// dateNumeric builds YYYY-MM-DD from day, month and year groups.
func dateNumeric(d, mo, y int) Transform {
	return func(m []string) (string, error) {
		month, err := strconv.Atoi(group(m, mo))
		if err != nil {
			return "", fmt.Errorf("bad month %q", group(m, mo))
		}
		return canonicalDate(group(m, d), time.Month(month), group(m, y))
	}
}

// dateWords builds YYYY-MM-DD from day, genitive month name and year groups.
// When the year group is empty the fallback group is used instead.
func dateWords(d, mo, y, fallbackY int) Transform {
	return func(m []string) (string, error) {
		month, ok := genitiveMonths[strings.ToLower(group(m, mo))]
		if !ok {
			return "", fmt.Errorf("unknown month %q", group(m, mo))
		}
		year := group(m, y)
		if year == "" && fallbackY > 0 {
			year = group(m, fallbackY)
		}
		return canonicalDate(group(m, d), month, year)
	}
}

func canonicalDate(day string, month time.Month, year string) (string, error) {
	dd, err1 := strconv.Atoi(day)
	yy, err2 := strconv.Atoi(year)
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("bad date %s.%d.%s", day, month, year)
	}
	t := time.Date(yy, month, dd, 0, 0, 0, 0, time.UTC)
	if t.Day() != dd || t.Month() != month {
		return "", fmt.Errorf("date out of range %s.%d.%s", day, month, year)
	}
	return t.Format(time.DateOnly), nil
}

// months accepts digits or a Russian numeral in words ("шестидесяти").
func months(g int) Transform {
	return func(m []string) (string, error) {
		s := strings.TrimSpace(group(m, g))
		if s == "" {
			return "", nil
		}
		if _, err := strconv.Atoi(s); err == nil {
			return s, nil
		}
		n, ok := parseRussianNumber(s)
		if !ok {
			return "", nil
		}
		return strconv.Itoa(n), nil
	}
}

// partyType maps a legal form to the kind of party.
func partyType(g int) Transform {
	return func(m []string) (string, error) {
		form := strings.ToLower(collapse(group(m, g)))
		switch {
		case form == "":
			return "", nil
		case strings.HasPrefix(form, "индивидуальный предприниматель"), form == "ип":
			return "индивидуальный предприниматель", nil
		default:
			return "юридическое лицо", nil
		}
	}
}

// sentenceCase renders an upper-case heading as "Договор подряда".
func sentenceCase(g int) Transform {
	return func(m []string) (string, error) {
		r := []rune(strings.ToLower(collapse(group(m, g))))
		if len(r) == 0 {
			return "", nil
		}
		r[0] = unicode.ToUpper(r[0])
		return string(r), nil
	}
}

var attachmentKinds = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`смет|расч[её]т\s+стоимост`), constants.AttachmentEstimate},
	{regexp.MustCompile(`график|календарн`), constants.AttachmentSchedule},
	{regexp.MustCompile(`протокол`), constants.AttachmentProtocol},
	{regexp.MustCompile(`технологическ[а-яё]*\s+карт`), constants.AttachmentTechnicalMap},
	{regexp.MustCompile(`форм[аы]|образец|бланк`), constants.AttachmentForm},
	{regexp.MustCompile(`чертеж|чертёж|схем[аы]|план\s`), constants.AttachmentDrawing},
	{regexp.MustCompile(`(?:^|\s)акт(?:\s|$|ы)`), constants.AttachmentAct},
	{regexp.MustCompile(`проект|техническое\s+задание`), constants.AttachmentProject},
}

// attachmentType classifies an attachment by its title.
func attachmentType(title string) string {
	t := strings.ToLower(title)
	for _, k := range attachmentKinds {
		if k.re.MatchString(t) {
			return k.kind
		}
	}
	return constants.AttachmentOther
}
