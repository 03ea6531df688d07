package timex

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrParse is returned when an expression is not a recognizable TIMEX.
var ErrParse = errors.New("unparsable timex expression")

// Type is a granularity recognized in an expression.
type Type string

const (
	TypeDefinite  Type = "definite"
	TypeDate      Type = "date"
	TypeTime      Type = "time"
	TypeDateTime  Type = "datetime"
	TypeDateRange Type = "daterange"
	TypeTimeRange Type = "timerange"
	TypeDuration  Type = "duration"
	TypePresent   Type = "present"
	TypeRange     Type = "range"
)

// DateLayout is the layout of a definite date expression.
const DateLayout = "2006-01-02"

// Timex is the structured form of an expression.
// Zero means "not specified" for every numeric field.
type Timex struct {
	Raw string

	Year       int
	Month      int
	DayOfMonth int
	DayOfWeek  int // 1 = Monday ... 7 = Sunday
	WeekOfYear int

	HasTime   bool
	Hour      int
	Minute    int
	Second    int
	PartOfDay string // MO, AF, EV, NI

	Duration   string
	PresentRef bool

	// Start and End are set for range expressions.
	Start *Timex
	End   *Timex
}

var (
	reFullDate = regexp.MustCompile(`^(\d{4}|XXXX)-(\d{2}|XX)-(\d{2}|XX)$`)
	reWeekDay  = regexp.MustCompile(`^(\d{4}|XXXX)-W(\d{2}|XX)-([1-7])$`)
	reWeek     = regexp.MustCompile(`^(\d{4}|XXXX)-W(\d{2})$`)
	reYearMon  = regexp.MustCompile(`^(\d{4}|XXXX)-(\d{2})$`)
	reYear     = regexp.MustCompile(`^(\d{4})$`)
	reClock    = regexp.MustCompile(`^(\d{2})(?::(\d{2}))?(?::(\d{2}))?$`)
	rePartDay  = regexp.MustCompile(`^(MO|AF|EV|NI)$`)
	reDuration = regexp.MustCompile(`^P(?:\d+(?:\.\d+)?[YMWD])*(?:T(?:\d+(?:\.\d+)?[HMS])+)?$`)
)

// Parse converts an expression into its structured form.
func Parse(expr string) (Timex, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return Timex{}, fmt.Errorf("%w: empty expression", ErrParse)
	}

	switch {
	case s == "PRESENT_REF":
		return Timex{Raw: s, PresentRef: true}, nil
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		return parseRange(s)
	case strings.HasPrefix(s, "P"):
		if len(s) < 3 || !reDuration.MatchString(s) {
			return Timex{}, fmt.Errorf("%w: bad duration %q", ErrParse, s)
		}
		return Timex{Raw: s, Duration: s}, nil
	}

	t := Timex{Raw: s}
	datePart, timePart, hasT := strings.Cut(s, "T")
	if datePart != "" {
		if err := t.parseDate(datePart); err != nil {
			return Timex{}, err
		}
	}
	if hasT {
		if err := t.parseTime(timePart); err != nil {
			return Timex{}, err
		}
	}
	return t, nil
}

func parseRange(s string) (Timex, error) {
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 && len(parts) != 3 {
		return Timex{}, fmt.Errorf("%w: bad range %q", ErrParse, s)
	}
	start, err := Parse(parts[0])
	if err != nil {
		return Timex{}, err
	}
	end, err := Parse(parts[1])
	if err != nil {
		return Timex{}, err
	}
	t := Timex{Raw: s, Start: &start, End: &end}
	if len(parts) == 3 {
		d, err := Parse(parts[2])
		if err != nil || d.Duration == "" {
			return Timex{}, fmt.Errorf("%w: bad range duration %q", ErrParse, parts[2])
		}
		t.Duration = d.Duration
	}
	return t, nil
}

func (t *Timex) parseDate(s string) error {
	if m := reFullDate.FindStringSubmatch(s); m != nil {
		t.Year, t.Month, t.DayOfMonth = num(m[1]), num(m[2]), num(m[3])
		return t.validateDate()
	}
	if m := reWeekDay.FindStringSubmatch(s); m != nil {
		t.Year, t.WeekOfYear, t.DayOfWeek = num(m[1]), num(m[2]), num(m[3])
		return t.validateDate()
	}
	if m := reWeek.FindStringSubmatch(s); m != nil {
		t.Year, t.WeekOfYear = num(m[1]), num(m[2])
		return t.validateDate()
	}
	if m := reYearMon.FindStringSubmatch(s); m != nil {
		t.Year, t.Month = num(m[1]), num(m[2])
		return t.validateDate()
	}
	if m := reYear.FindStringSubmatch(s); m != nil {
		t.Year = num(m[1])
		return nil
	}
	return fmt.Errorf("%w: bad date %q", ErrParse, s)
}

func (t *Timex) validateDate() error {
	if t.Month > 12 || t.WeekOfYear > 53 || t.DayOfMonth > 31 {
		return fmt.Errorf("%w: date out of range %q", ErrParse, t.Raw)
	}
	if t.Year > 0 && t.Month > 0 && t.DayOfMonth > 0 {
		d := time.Date(t.Year, time.Month(t.Month), t.DayOfMonth, 0, 0, 0, 0, time.UTC)
		if d.Day() != t.DayOfMonth {
			return fmt.Errorf("%w: no such day %q", ErrParse, t.Raw)
		}
	}
	return nil
}

func (t *Timex) parseTime(s string) error {
	if m := rePartDay.FindStringSubmatch(s); m != nil {
		t.PartOfDay = m[1]
		return nil
	}
	m := reClock.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("%w: bad time %q", ErrParse, s)
	}
	t.HasTime = true
	t.Hour, t.Minute, t.Second = num(m[1]), num(m[2]), num(m[3])
	if t.Hour > 24 || t.Minute > 59 || t.Second > 59 {
		return fmt.Errorf("%w: time out of range %q", ErrParse, s)
	}
	return nil
}

// num converts a digit group; placeholders and empty groups become 0.
func num(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Types infers the granularities present in the expression.
func (t Timex) Types() map[Type]bool {
	types := make(map[Type]bool)

	if t.PresentRef {
		types[TypePresent] = true
		types[TypeDate] = true
		types[TypeTime] = true
		types[TypeDateTime] = true
		return types
	}

	if t.Start != nil && t.End != nil {
		types[TypeRange] = true
		st, et := t.Start.Types(), t.End.Types()
		if st[TypeDate] && et[TypeDate] {
			types[TypeDateRange] = true
		}
		if st[TypeTime] && et[TypeTime] {
			types[TypeTimeRange] = true
		}
		if t.Duration != "" {
			types[TypeDuration] = true
		}
		return types
	}

	if t.Duration != "" {
		types[TypeDuration] = true
	}

	hasDate := (t.Month > 0 && t.DayOfMonth > 0) || t.DayOfWeek > 0
	if hasDate {
		types[TypeDate] = true
	}
	if t.Year > 0 && t.Month > 0 && t.DayOfMonth > 0 {
		types[TypeDefinite] = true
	}
	if !hasDate && (t.Year > 0 || t.Month > 0 || t.WeekOfYear > 0) {
		types[TypeDateRange] = true
	}
	if t.HasTime {
		types[TypeTime] = true
		if hasDate {
			types[TypeDateTime] = true
		}
	}
	if t.PartOfDay != "" {
		types[TypeTimeRange] = true
	}
	return types
}

// TypeNames returns the inferred types sorted by name.
func (t Timex) TypeNames() []string {
	types := t.Types()
	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// Date returns the calendar date of a definite expression.
func (t Timex) Date() (time.Time, bool) {
	if !t.Types()[TypeDefinite] {
		return time.Time{}, false
	}
	return time.Date(t.Year, time.Month(t.Month), t.DayOfMonth, 0, 0, 0, 0, time.UTC), true
}

// IsAmbiguous reports whether expr fails to name a fully resolved calendar date.
// Unparsable input is always ambiguous.
func IsAmbiguous(expr string) bool {
	t, err := Parse(expr)
	if err != nil {
		return true
	}
	return !t.Types()[TypeDefinite]
}

// FromDate builds the definite expression for a calendar date.
func FromDate(d time.Time) string {
	return d.Format(DateLayout)
}
