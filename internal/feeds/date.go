package feeds

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var dutchMonths = map[string]int{
	"januari": 1, "februari": 2, "maart": 3, "april": 4, "mei": 5, "juni": 6,
	"juli": 7, "augustus": 8, "september": 9, "oktober": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mrt": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "sept": 9, "okt": 10, "nov": 11, "dec": 12,
}

var dutchDateRe = regexp.MustCompile(`(\d{1,2})\s+([a-zA-Z]+)\.?\s+(\d{4})`)

var layouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	isoDate,
	"02-01-2006",
	"2 January 2006",
}

// ParseDate normalizes a date string to YYYY-MM-DD. Dutch day-month-year
// text ("3 maart 2024") is understood. Unparseable input is returned
// trimmed and unchanged.
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format(isoDate)
		}
	}
	if m := dutchDateRe.FindStringSubmatch(s); m != nil {
		month, ok := dutchMonths[strings.ToLower(m[2])]
		if !ok {
			return s
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day || int(t.Month()) != month {
			return s
		}
		return t.Format(isoDate)
	}
	return s
}
