package sanitizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeps/pkg/model"
)

func newLAResolver(t *testing.T) *DateResolver {
	t.Helper()
	r, err := NewDateResolverForZone(DefaultTimezone)
	require.NoError(t, err)
	return r
}

func TestResolve_NumericBoundaries(t *testing.T) {
	r := newLAResolver(t)

	tests := []struct {
		name        string
		input       model.RawValue
		wantDisplay string
		wantKey     string
		wantMillis  int64
	}{
		{
			name:        "just above millisecond threshold",
			input:       model.Number(1000000000001),
			wantDisplay: "09/08/2001",
			wantKey:     "2001-09-08",
			wantMillis:  1000000000001,
		},
		{
			name:       "millisecond threshold itself is read as seconds",
			input:      model.Number(1000000000000),
			wantMillis: 1000000000000000,
		},
		{
			name:        "just above seconds threshold",
			input:       model.Number(1000000001),
			wantDisplay: "09/08/2001",
			wantKey:     "2001-09-08",
			wantMillis:  1000000001000,
		},
		{
			name:        "packed date upper bound",
			input:       model.Number(20991231),
			wantDisplay: "12/31/2099",
			wantKey:     "2099-12-31",
		},
		{
			name:        "packed date lower bound",
			input:       model.Number(19000101),
			wantDisplay: "01/01/1900",
			wantKey:     "1900-01-01",
		},
		{
			name:        "spreadsheet serial",
			input:       model.Number(46015),
			wantDisplay: "12/23/2025",
			wantKey:     "2025-12-23",
		},
		{
			name:        "spreadsheet serial earlier in month",
			input:       model.Number(46010),
			wantDisplay: "12/18/2025",
			wantKey:     "2025-12-18",
		},
		{
			name:        "spreadsheet serial fraction ignored",
			input:       model.Number(46015.75),
			wantDisplay: "12/23/2025",
			wantKey:     "2025-12-23",
		},
		{
			name:        "small number falls back to epoch milliseconds",
			input:       model.Number(2025),
			wantDisplay: "12/31/1969",
			wantKey:     "1969-12-31",
			wantMillis:  2025,
		},
		{
			name:        "seconds threshold itself falls back to epoch milliseconds",
			input:       model.Number(1000000000),
			wantDisplay: "01/12/1970",
			wantKey:     "1970-01-12",
			wantMillis:  1000000000,
		},
		{
			name:        "serial lower bound is exclusive",
			input:       model.Number(20000),
			wantDisplay: "12/31/1969",
			wantKey:     "1969-12-31",
			wantMillis:  20000,
		},
		{
			name:        "serial upper bound is exclusive",
			input:       model.Number(80000),
			wantDisplay: "12/31/1969",
			wantKey:     "1969-12-31",
			wantMillis:  80000,
		},
		{
			name:       "fraction truncated to whole milliseconds",
			input:      model.Number(12.5),
			wantMillis: 12,
		},
		{
			name:       "negative number before the epoch",
			input:      model.Number(-5),
			wantMillis: -5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.input)
			require.True(t, got.IsResolved())
			if tt.wantDisplay != "" {
				assert.Equal(t, tt.wantDisplay, got.DisplayDate)
				assert.Equal(t, tt.wantKey, got.Key)
			}
			if tt.wantMillis != 0 {
				assert.Equal(t, tt.wantMillis, *got.EpochMillis)
			}
		})
	}
}

func TestResolve_Unresolved(t *testing.T) {
	r := newLAResolver(t)

	tests := []struct {
		name  string
		input model.RawValue
	}{
		{name: "absent", input: model.Absent()},
		{name: "empty string", input: model.Text("")},
		{name: "whitespace only", input: model.Text("   ")},
		{name: "invalid packed date just past range", input: model.Number(20991232)},
		{name: "packed date with month 13", input: model.Number(20251301)},
		{name: "impossible 8-digit value below the packed range", input: model.Number(18991332)},
		{name: "zero native date", input: model.Date(time.Time{})},
		{name: "impossible month/day/year", input: model.Text("2/30/2025")},
		{name: "garbage text", input: model.Text("not a date")},
		{name: "beyond representable range", input: model.Number(9e15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.input)
			assert.False(t, got.IsResolved())
			assert.Nil(t, got.EpochMillis)
			assert.Empty(t, got.DisplayDate)
			assert.Empty(t, got.Key)
		})
	}
}

func TestResolve_Text(t *testing.T) {
	r := newLAResolver(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "month/day/year", input: "12/25/2025", want: "12/25/2025"},
		{name: "single digit month and day", input: "1/5/2026", want: "01/05/2026"},
		{name: "surrounding whitespace", input: "  3/7/2026 ", want: "03/07/2026"},
		{name: "long month name", input: "December 23, 2025", want: "12/23/2025"},
		{name: "iso date", input: "2025-12-23", want: "12/23/2025"},
		{name: "numeric string takes numeric path", input: "46015", want: "12/23/2025"},
		{name: "numeric string with fraction", input: "46015.5", want: "12/23/2025"},
		{name: "packed date string", input: "20260214", want: "02/14/2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(model.Text(tt.input))
			require.True(t, got.IsResolved(), "expected %q to resolve", tt.input)
			assert.Equal(t, tt.want, got.DisplayDate)
		})
	}
}

func TestResolve_StringAndNumberAgree(t *testing.T) {
	r := newLAResolver(t)

	for _, n := range []float64{46015, 20991231, 1000000000001, 1700000000} {
		fromNumber := r.Resolve(model.Number(n))
		fromText := r.Resolve(model.Text(model.Number(n).String()))
		assert.Equal(t, fromNumber, fromText, "value %v", n)
	}
}

func TestResolve_NativeDate(t *testing.T) {
	r := newLAResolver(t)

	instant := time.Date(2025, time.December, 23, 12, 0, 0, 0, time.UTC)
	got := r.Resolve(model.Date(instant))

	require.True(t, got.IsResolved())
	assert.Equal(t, instant.UnixMilli(), *got.EpochMillis)
	assert.Equal(t, "12/23/2025", got.DisplayDate)
	assert.Equal(t, "2025-12-23", got.Key)
}

func TestResolve_ReferenceZoneDrivesDisplay(t *testing.T) {
	utc := NewDateResolver(nil)
	la := newLAResolver(t)

	fromUTC := utc.Resolve(model.Number(46015))
	fromLA := la.Resolve(model.Number(46015))

	assert.Equal(t, "12/24/2025", fromUTC.DisplayDate)
	assert.Equal(t, "12/23/2025", fromLA.DisplayDate)
	assert.Equal(t, *fromUTC.EpochMillis, *fromLA.EpochMillis)
}

func TestNewDateResolverForZone_UnknownZone(t *testing.T) {
	_, err := NewDateResolverForZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}
