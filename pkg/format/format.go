// Package format renders dates and amounts for display.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"golang.org/x/text/language"

	"github.com/luthenlog/luthen/pkg/api"
)

// DefaultLocale is used when a locale is empty or unsupported.
const DefaultLocale = "es-VE"

// FormTime renders the time of day as 24-hour HH:mm.
func FormTime(t time.Time) string {
	return t.Format("15:04")
}

type dateNames struct {
	weekdays [7]string
	months   [12]string
	// layout builds the date from weekday, day, month and year.
	layout func(weekday, day, month string, year int) string
}

var spanish = dateNames{
	weekdays: [7]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"},
	months:   [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
	layout: func(weekday, day, month string, year int) string {
		return fmt.Sprintf("%s, %s %s %d", weekday, day, month, year)
	},
}

var english = dateNames{
	weekdays: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	months:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	layout: func(weekday, day, month string, year int) string {
		return fmt.Sprintf("%s, %s %s, %d", weekday, month, day, year)
	},
}

// Spanish comes first so that it is the fallback.
var (
	supported = []language.Tag{language.Spanish, language.English}
	names     = []dateNames{spanish, english}
	matcher   = language.NewMatcher(supported)
)

func namesFor(locale string) dateNames {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return names[0]
	}
	_, i, _ := matcher.Match(tag)
	return names[i]
}

// TableDate renders an API date the way record tables show it:
// "lun, 15 ene 2024" for Spanish locales, "Mon, Jan 15, 2024" for English.
// Dates are RFC 3339 timestamps or plain YYYY-MM-DD days.
func TableDate(s, locale string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	n := namesFor(locale)
	day := fmt.Sprintf("%02d", t.Day())
	return n.layout(n.weekdays[t.Weekday()], day, n.months[t.Month()-1], t.Year()), nil
}

// ParseDate accepts the date forms the API produces.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Amount renders a in currency, e.g. "$1,234.56" or "-$5.00". Unknown
// currency codes fall back to a plain number followed by the code.
func Amount(a api.Amount, currency string) string {
	code := strings.ToUpper(currency)
	cur := money.GetCurrency(code)
	if cur == nil {
		return a.StringFixed(2) + " " + code
	}
	minor := a.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// Type names a record type for tables.
func Type(r api.Record) string {
	if r.IsTransfer() {
		return "transfer"
	}
	return r.Type.String()
}

// Optional renders a nullable string, using "-" for null.
func Optional(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// Bool renders a flag as yes or an empty cell.
func Bool(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
