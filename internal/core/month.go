package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// YearMonth identifies a calendar month. It is the month key used for
// override lookups, projection rows and statements.
type YearMonth struct {
	Year  int
	Month time.Month
}

// NewYearMonth normalizes month overflow, so NewYearMonth(2025, 13) is January 2026.
func NewYearMonth(year int, month time.Month) YearMonth {
	return yearMonthFromIndex(year*12 + int(month) - 1)
}

// YearMonthOf returns the month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func yearMonthFromIndex(idx int) YearMonth {
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return YearMonth{Year: y, Month: time.Month(m + 1)}
}

// Index returns a monotonically increasing month number (year*12 + month-1).
func (ym YearMonth) Index() int {
	return ym.Year*12 + int(ym.Month) - 1
}

// AddMonths returns the month n months after ym (n may be negative).
func (ym YearMonth) AddMonths(n int) YearMonth {
	return yearMonthFromIndex(ym.Index() + n)
}

// MonthsUntil returns other.Index() - ym.Index().
func (ym YearMonth) MonthsUntil(other YearMonth) int {
	return other.Index() - ym.Index()
}

func (ym YearMonth) Compare(other YearMonth) int {
	a, b := ym.Index(), other.Index()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (ym YearMonth) Before(other YearMonth) bool { return ym.Index() < other.Index() }
func (ym YearMonth) After(other YearMonth) bool  { return ym.Index() > other.Index() }

// IsZero reports whether ym is unset.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// FirstDay returns the first day of the month.
func (ym YearMonth) FirstDay() Date {
	return NewDate(ym.Year, int(ym.Month), 1)
}

// LastDay returns the last day of the month.
func (ym YearMonth) LastDay() Date {
	return Date{Time: time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC)}
}

// Days returns the number of days in the month.
func (ym YearMonth) Days() int {
	return ym.LastDay().Day()
}

// String renders the canonical YYYY-MM form.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Label renders the presentation key, e.g. "JAN 2026".
func (ym YearMonth) Label() string {
	return strings.ToUpper(ym.Month.String()[:3]) + " " + strconv.Itoa(ym.Year)
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	if ym.IsZero() {
		return []byte{}, nil
	}
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*ym = YearMonth{}
		return nil
	}
	parsed, err := ParseMonthKey(s)
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// ParseYearMonth parses the canonical YYYY-MM form.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return YearMonthOf(t), nil
}

var monthAbbreviations = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March, "APR": time.April,
	"MAY": time.May, "JUN": time.June, "JUL": time.July, "AUG": time.August,
	"SEP": time.September, "OCT": time.October, "NOV": time.November, "DEC": time.December,
	// Portuguese labels found in exported data.
	"FEV": time.February, "ABR": time.April, "MAI": time.May, "AGO": time.August,
	"SET": time.September, "OUT": time.October, "DEZ": time.December,
}

// ParseMonthKey accepts YYYY-MM or a label such as "JAN 2026" or "JAN. DE 2026".
func ParseMonthKey(s string) (YearMonth, error) {
	if ym, err := ParseYearMonth(s); err == nil {
		return ym, nil
	}
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, ".", "")
	norm = strings.ReplaceAll(norm, " DE ", " ")
	fields := strings.Fields(norm)
	if len(fields) != 2 {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	month, ok := monthAbbreviations[fields[0]]
	if !ok && len(fields[0]) > 3 {
		month, ok = monthAbbreviations[fields[0][:3]]
	}
	if !ok {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil || year < 1 {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return YearMonth{Year: year, Month: month}, nil
}
