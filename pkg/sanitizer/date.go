package sanitizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/araddon/dateparse"

	"sweeps/pkg/model"
)

const (
	DisplayLayout = "01/02/2006"
	KeyLayout     = "2006-01-02"

	DefaultTimezone = "America/Los_Angeles"

	epochMillisThreshold  = 1_000_000_000_000
	epochSecondsThreshold = 1_000_000_000
	packedDateMin         = 19000101
	packedDateMax         = 20991231
	serialDateMin         = 20000
	serialDateMax         = 80000

	// Largest instant a spreadsheet host can represent: ±100,000,000 days
	// around the Unix epoch.
	maxEpochMillis = 8.64e15
)

var (
	reNumericText  = regexp.MustCompile(`^\d+(\.\d+)?$`)
	reMonthDayYear = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

	serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
)

// DateResolver classifies raw end-date cells and renders them in a single
// reference timezone so output does not depend on the host locale.
type DateResolver struct {
	loc *time.Location
}

// NewDateResolver builds a resolver for loc. A nil location means UTC.
func NewDateResolver(loc *time.Location) *DateResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &DateResolver{loc: loc}
}

// NewDateResolverForZone loads an IANA zone name, e.g. "America/Los_Angeles".
func NewDateResolverForZone(name string) (*DateResolver, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return NewDateResolver(loc), nil
}

func (r *DateResolver) Location() *time.Location {
	return r.loc
}

func (r *DateResolver) Resolve(raw model.RawValue) model.ResolvedDate {
	t, ok := r.parse(raw)
	if !ok {
		return model.ResolvedDate{}
	}
	ms := t.UnixMilli()
	local := t.In(r.loc)
	return model.ResolvedDate{
		EpochMillis: &ms,
		DisplayDate: local.Format(DisplayLayout),
		Key:         local.Format(KeyLayout),
	}
}

func (r *DateResolver) parse(raw model.RawValue) (time.Time, bool) {
	switch raw.Kind() {
	case model.KindDate:
		t, _ := raw.AsDate()
		return t, validInstant(t)
	case model.KindNumber:
		n, _ := raw.AsNumber()
		return r.fromNumber(n)
	case model.KindText:
		s, _ := raw.AsText()
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		if reNumericText.MatchString(s) {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return time.Time{}, false
			}
			return r.fromNumber(n)
		}
		return r.fromText(s)
	default:
		return time.Time{}, false
	}
}

// fromNumber applies the magnitude rules in order. The boundaries are strict
// and a value sitting on one belongs to the rule below it.
func (r *DateResolver) fromNumber(n float64) (time.Time, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return time.Time{}, false
	}

	switch {
	case n > epochMillisThreshold:
		return fromEpochMillis(n)
	case n > epochSecondsThreshold:
		return fromEpochMillis(n * 1000)
	case n >= packedDateMin && n <= packedDateMax:
		return r.fromPackedDate(strconv.FormatInt(int64(n), 10))
	case n > serialDateMin && n < serialDateMax:
		return serialEpoch.AddDate(0, 0, int(math.Floor(n))), true
	default:
		return r.fromNumberFallback(n)
	}
}

func fromEpochMillis(ms float64) (time.Time, bool) {
	if math.Abs(ms) > maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

func (r *DateResolver) fromPackedDate(s string) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	return r.calendarDate(year, month, day)
}

// fromNumberFallback handles numbers that matched no magnitude rule. Whole
// 8-digit values are only ever read as a packed date, so an impossible one
// such as 20991232 stays unresolved. Everything else is epoch milliseconds.
func (r *DateResolver) fromNumberFallback(n float64) (time.Time, bool) {
	if n >= 0 && n == math.Trunc(n) {
		if s := strconv.FormatInt(int64(n), 10); len(s) == 8 {
			return r.fromPackedDate(s)
		}
	}
	return fromEpochMillis(n)
}

func (r *DateResolver) fromText(s string) (t time.Time, ok bool) {
	if m := reMonthDayYear.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return r.calendarDate(year, month, day)
	}

	// dateparse can panic on some malformed inputs.
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()

	parsed, err := dateparse.ParseIn(s, r.loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, validInstant(parsed)
}

// calendarDate builds midnight of year-month-day in the reference zone and
// rejects dates that time.Date would roll over, such as February 30.
func (r *DateResolver) calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func validInstant(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return math.Abs(float64(t.UnixMilli())) <= maxEpochMillis
}
