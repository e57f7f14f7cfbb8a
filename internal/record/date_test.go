package record

import (
	"testing"
	"time"
)

func TestMonthOrdinal(t *testing.T) {
	tests := []struct {
		token string
		want  int
	}{
		{"Mar", 3},
		{"mar", 3},
		{"March", 3},
		{"Dec", 12},
		{"7", 7},
		{"07", 7},
		{"", 1},
		{"99", 1},
		{"13", 1},
		{"Spring", 1},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := MonthOrdinal(tt.token); got != tt.want {
				t.Errorf("MonthOrdinal(%q) = %d, want %d", tt.token, got, tt.want)
			}
		})
	}
}

func TestPartialDate_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b PartialDate
		want int
	}{
		{"equal", PartialDate{2020, 3, 4}, PartialDate{2020, 3, 4}, 0},
		{"year first", PartialDate{2019, 12, 31}, PartialDate{2020, 1, 1}, -1},
		{"month second", PartialDate{2020, 2, 28}, PartialDate{2020, 3, 1}, -1},
		{"unknown day sorts last", PartialDate{2020, 3, UnknownDay}, PartialDate{2020, 3, 31}, 1},
		{"unknown date after known year", UnknownDate(), PartialDate{2024, UnknownMonth, UnknownDay}, 1},
		{"unknown date after known month only", UnknownDate(), PartialDate{UnknownYear, 5, UnknownDay}, 1},
		{"zero components are unknown", PartialDate{}, UnknownDate(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPartialDate_Time(t *testing.T) {
	got, ok := PartialDate{Year: 2021, Month: UnknownMonth, Day: 15}.Time()
	if !ok {
		t.Fatal("Time() ok = false, want true")
	}
	want := time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}

	if _, ok := UnknownDate().Time(); ok {
		t.Error("Time() ok = true for unknown year, want false")
	}
}

func TestPartialDate_StringRoundTrip(t *testing.T) {
	tests := []struct {
		date PartialDate
		want string
	}{
		{PartialDate{2021, 3, 4}, "2021:03:04"},
		{PartialDate{2021, UnknownMonth, UnknownDay}, "2021:99:99"},
		{UnknownDate(), "9999:99:99"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.date.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if back := ParsePartialDate(tt.want); back != tt.date {
				t.Errorf("ParsePartialDate(%q) = %+v, want %+v", tt.want, back, tt.date)
			}
		})
	}
}

func TestParsePartialDate_MonthName(t *testing.T) {
	got := ParsePartialDate("2019:Mar:99")
	want := PartialDate{Year: 2019, Month: 3, Day: UnknownDay}
	if got != want {
		t.Errorf("ParsePartialDate() = %+v, want %+v", got, want)
	}
}
