package compute

import (
	"errors"
	"testing"
	"time"
)

func TestAnalyticsPeriods(t *testing.T) {
	// Wednesday.
	ref := time.Date(2024, 6, 12, 15, 45, 30, 0, time.UTC)
	p := AnalyticsPeriods(ref)

	check := func(name string, got, want time.Time) {
		t.Helper()
		if !got.Equal(want) {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	check("Today.Start", p.Today.Start, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	check("Today.End", p.Today.End, time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC))
	check("Yesterday.Start", p.Yesterday.Start, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC))
	check("Yesterday.End", p.Yesterday.End, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	check("ThisWeek.Start", p.ThisWeek.Start, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC))
	check("ThisWeek.End", p.ThisWeek.End, ref)
	check("ThisMonth.Start", p.ThisMonth.Start, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	check("ThisMonth.End", p.ThisMonth.End, ref)
	check("ThisYear.Start", p.ThisYear.Start, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	check("ThisYear.End", p.ThisYear.End, ref)
}

func TestAnalyticsPeriodsSundayAndMonthStart(t *testing.T) {
	// Sunday 2024-09-01: the week starts today, yesterday is in August.
	ref := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	p := AnalyticsPeriods(ref)
	if want := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC); !p.ThisWeek.Start.Equal(want) {
		t.Errorf("ThisWeek.Start = %v, want %v", p.ThisWeek.Start, want)
	}
	if want := time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC); !p.Yesterday.Start.Equal(want) {
		t.Errorf("Yesterday.Start = %v, want %v", p.Yesterday.Start, want)
	}
}

func TestAnalyticsPeriodsKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	ref := time.Date(2024, 1, 1, 1, 0, 0, 0, loc)
	p := AnalyticsPeriods(ref)
	if p.Today.Start.Location() != loc {
		t.Errorf("Today.Start location = %v, want %v", p.Today.Start.Location(), loc)
	}
	if want := time.Date(2023, 12, 31, 0, 0, 0, 0, loc); !p.Yesterday.Start.Equal(want) {
		t.Errorf("Yesterday.Start = %v, want %v", p.Yesterday.Start, want)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, loc); !p.ThisYear.Start.Equal(want) {
		t.Errorf("ThisYear.Start = %v, want %v", p.ThisYear.Start, want)
	}
}

func TestCheckDateRange(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		want       error
	}{
		{"same day", "2024-03-01", "2024-03-01", nil},
		{"exactly 365 days", "2023-01-01", "2024-01-01", nil},
		{"366 days", "2023-01-01", "2024-01-02", ErrRangeTooLarge},
		{"leap year 365 days", "2024-01-01", "2024-12-31", nil},
		{"leap year 366 days", "2024-01-01", "2025-01-01", ErrRangeTooLarge},
		{"inverted", "2024-03-02", "2024-03-01", ErrInvertedRange},
		{"rfc3339", "2024-03-01T10:00:00Z", "2024-03-01T12:00:00+01:00", nil},
		{"bad start", "03/01/2024", "2024-03-01", ErrInvalidFormat},
		{"bad end", "2024-03-01", "", ErrInvalidFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckDateRange(tc.start, tc.end)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("CheckDateRange(%q, %q) = %v, want nil", tc.start, tc.end, err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("CheckDateRange(%q, %q) = %v, want %v", tc.start, tc.end, err, tc.want)
			}
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	v := ValidateDateRange("2024-01-01", "2024-02-01")
	if !v.IsValid || len(v.Errors) != 0 {
		t.Errorf("ValidateDateRange valid range = %+v, want valid", v)
	}

	v = ValidateDateRange("2024-02-01", "2024-01-01")
	if v.IsValid {
		t.Error("ValidateDateRange inverted range IsValid = true, want false")
	}
	if len(v.Errors) != 1 || v.Errors[0] != ErrInvertedRange.Error() {
		t.Errorf("Errors = %v, want [%q]", v.Errors, ErrInvertedRange.Error())
	}
}
