package parse

import (
	"testing"
	"time"
)

// Monday, Jan 1 2024, 15:00 UTC.
var ref = time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)

func TestResolveRelativeOffsets(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{name: "hours", text: "call John in 2 hours", want: ref.Add(2 * time.Hour)},
		{name: "minutes", text: "stretch in 30 minutes", want: ref.Add(30 * time.Minute)},
		{name: "an hour", text: "check oven in an hour", want: ref.Add(time.Hour)},
		{name: "days", text: "renew passport in 3 days", want: ref.AddDate(0, 0, 3)},
		{name: "weeks", text: "follow up in 1 week", want: ref.AddDate(0, 0, 7)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Resolve(tt.text, ref)
			if !ok {
				t.Fatalf("Resolve(%q) found nothing", tt.text)
			}
			if !m.Time.Equal(tt.want) {
				t.Fatalf("Time = %v, want %v", m.Time, tt.want)
			}
		})
	}
}

func TestResolveClockNormalization(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		hour int
	}{
		{text: "wake me tomorrow at 12am", hour: 0},
		{text: "lunch tomorrow at 12pm", hour: 12},
		{text: "dinner tomorrow at 9pm", hour: 21},
		{text: "standup tomorrow at 9am", hour: 9},
		{text: "review tomorrow at 14:00", hour: 14},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.text, func(t *testing.T) {
			m, ok := Resolve(tt.text, ref)
			if !ok {
				t.Fatalf("Resolve(%q) found nothing", tt.text)
			}
			if m.Time.Hour() != tt.hour {
				t.Fatalf("hour = %d, want %d", m.Time.Hour(), tt.hour)
			}
			if m.Time.Minute() != 0 && tt.text != "review tomorrow at 14:00" {
				t.Fatalf("minutes should default to 0, got %d", m.Time.Minute())
			}
		})
	}
}

func TestResolvePastClockRollsToNextDay(t *testing.T) {
	t.Parallel()
	// 9am has already passed at the 15:00 reference instant.
	m, ok := Resolve("remind me at 9am", ref)
	if !ok {
		t.Fatal("expected a match")
	}
	want := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	if !m.Time.Equal(want) {
		t.Fatalf("Time = %v, want %v", m.Time, want)
	}
	if m.ExplicitDay {
		t.Fatal("clock-only expression should not carry an explicit day")
	}
}

func TestResolveFutureClockStaysToday(t *testing.T) {
	t.Parallel()
	m, ok := Resolve("remind me at 5pm", ref)
	if !ok {
		t.Fatal("expected a match")
	}
	want := time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)
	if !m.Time.Equal(want) {
		t.Fatalf("Time = %v, want %v", m.Time, want)
	}
}

func TestResolveExplicitPastDayIsNotAdvanced(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		// "today at 9am" said at 15:00 is in the past, but the day is explicit.
		{name: "today", text: "pay rent today at 9am", want: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		// A month-name date before the reference stays literal.
		{name: "month date", text: "taxes due on Dec 15 2023", want: time.Date(2023, 12, 15, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Resolve(tt.text, ref)
			if !ok {
				t.Fatalf("Resolve(%q) found nothing", tt.text)
			}
			if !m.ExplicitDay {
				t.Fatal("expected an explicit day")
			}
			if !m.Time.Equal(tt.want) {
				t.Fatalf("Time = %v, want %v", m.Time, tt.want)
			}
		})
	}
}

func TestResolveWeekday(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		// Reference is Monday Jan 1; Friday is Jan 5.
		{name: "with clock", text: "Doctor appointment on Friday at 2:30pm", want: time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)},
		{name: "bare", text: "Pay bills by Friday", want: time.Date(2024, 1, 5, defaultHour, 0, 0, 0, time.UTC)},
		// Same weekday with a clock already passed jumps a full week.
		{name: "today past clock", text: "standup Monday at 9am", want: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)},
		// Same weekday with a clock still ahead stays today.
		{name: "today future clock", text: "review Monday at 5pm", want: time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)},
		{name: "next skips today", text: "planning next Monday at 5pm", want: time.Date(2024, 1, 8, 17, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Resolve(tt.text, ref)
			if !ok {
				t.Fatalf("Resolve(%q) found nothing", tt.text)
			}
			if !m.Time.Equal(tt.want) {
				t.Fatalf("Time = %v, want %v", m.Time, tt.want)
			}
		})
	}
}

func TestResolveDayRefs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{name: "tomorrow with clock", text: "Submit assignment tomorrow at 9am", want: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)},
		{name: "tomorrow bare", text: "water plants tomorrow", want: time.Date(2024, 1, 2, defaultHour, 0, 0, 0, time.UTC)},
		{name: "tonight", text: "take out trash tonight", want: time.Date(2024, 1, 1, tonightHour, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Resolve(tt.text, ref)
			if !ok {
				t.Fatalf("Resolve(%q) found nothing", tt.text)
			}
			if !m.Time.Equal(tt.want) {
				t.Fatalf("Time = %v, want %v", m.Time, tt.want)
			}
		})
	}
}

func TestResolveMonthDates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{name: "month first", text: "dentist on June 5 at 10am", want: time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)},
		{name: "day first", text: "flight on 5th of June", want: time.Date(2024, 6, 5, defaultHour, 0, 0, 0, time.UTC)},
		{name: "with year", text: "renewal on Jan 15 2025", want: time.Date(2025, 1, 15, defaultHour, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Resolve(tt.text, ref)
			if !ok {
				t.Fatalf("Resolve(%q) found nothing", tt.text)
			}
			if !m.Time.Equal(tt.want) {
				t.Fatalf("Time = %v, want %v", m.Time, tt.want)
			}
		})
	}
}

func TestResolveEarliestExpressionWins(t *testing.T) {
	t.Parallel()
	// Both "tomorrow at 9am" and "2 hours" style text present; the earlier one wins.
	m, ok := Resolve("tomorrow at 9am ping me again at 5pm", ref)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Start != 0 {
		t.Fatalf("Start = %d, want 0", m.Start)
	}
	want := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	if !m.Time.Equal(want) {
		t.Fatalf("Time = %v, want %v", m.Time, want)
	}
}

func TestResolveNotFound(t *testing.T) {
	t.Parallel()
	for _, text := range []string{"", "hello there", "buy milk and bread", "call mom soon"} {
		if _, ok := Resolve(text, ref); ok {
			t.Fatalf("Resolve(%q) should not find a time expression", text)
		}
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{in: "12am", hour: 0, ok: true},
		{in: "12pm", hour: 12, ok: true},
		{in: "9pm", hour: 21, ok: true},
		{in: "2:30pm", hour: 14, minute: 30, ok: true},
		{in: "14:00", hour: 14, ok: true},
		{in: "13pm", ok: false},
		{in: "25:00", ok: false},
		{in: "9:75", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			h, m, ok := parseClock(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if h != tt.hour || m != tt.minute {
				t.Fatalf("got %d:%02d, want %d:%02d", h, m, tt.hour, tt.minute)
			}
		})
	}
}
