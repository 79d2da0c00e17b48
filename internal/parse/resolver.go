package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Match describes the first date/time expression found in a message.
type Match struct {
	Text  string // exact matched substring
	Start int    // byte offset into the original text
	End   int

	// Time is the resolved absolute instant, in the reference instant's location.
	Time time.Time

	// ExplicitDay reports whether the expression carried an explicit day
	// component ("tomorrow", "Friday", "June 5"). Clock-only expressions
	// ("9am") have no explicit day and are rolled forward when they would
	// land in the past; explicit days are never adjusted.
	ExplicitDay bool
}

// Day-level expressions without a clock resolve to these hours.
const (
	defaultHour = 9
	tonightHour = 20
)

// clockPat matches "9am", "2:30pm" and 24h "14:00". It is embedded as an
// optional suffix in the day-level patterns below.
const clockPat = `\d{1,2}(?::\d{2})?\s*(?:am|pm)|\d{1,2}:\d{2}`

var (
	relRe = regexp.MustCompile(`(?i)\bin\s+(\d+|an?)\s+(minute|min|hour|hr|day|week)s?\b`)

	dayRefRe = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow)\b(?:\s+(?:at\s+)?(` + clockPat + `))?`)

	weekdayRe = regexp.MustCompile(`(?i)\b(?:(next|this)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b(?:\s+(?:at\s+)?(` + clockPat + `))?`)

	monthPat = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

	monthDayRe = regexp.MustCompile(`(?i)\b(` + monthPat + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4}))?(?:\s+(?:at\s+)?(` + clockPat + `))?`)

	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthPat + `)\b(?:,?\s+(\d{4}))?(?:\s+(?:at\s+)?(` + clockPat + `))?`)

	clockOnlyRe = regexp.MustCompile(`(?i)\b(?:at\s+)?(` + clockPat + `)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Resolve scans text for the earliest date/time expression and resolves it
// against the reference instant ref. A clock-only expression that would land
// strictly before ref is advanced by one calendar day; expressions carrying an
// explicit day are returned as-is even when they are in the past.
//
// The second return value is false when no recognizable expression exists.
// That is a normal negative outcome, not an error.
func Resolve(text string, ref time.Time) (Match, bool) {
	type candidate struct {
		loc []int
		fn  func(loc []int) (time.Time, bool, bool) // instant, explicitDay, ok
	}

	// Pattern priority breaks ties for candidates starting at the same
	// offset: more specific expressions first, bare clock last.
	cands := []candidate{
		{relRe.FindStringSubmatchIndex(text), func(loc []int) (time.Time, bool, bool) { return resolveRelative(text, loc, ref) }},
		{dayRefRe.FindStringSubmatchIndex(text), func(loc []int) (time.Time, bool, bool) { return resolveDayRef(text, loc, ref) }},
		{weekdayRe.FindStringSubmatchIndex(text), func(loc []int) (time.Time, bool, bool) { return resolveWeekday(text, loc, ref) }},
		{monthDayRe.FindStringSubmatchIndex(text), func(loc []int) (time.Time, bool, bool) { return resolveMonthDay(text, loc, ref, false) }},
		{dayMonthRe.FindStringSubmatchIndex(text), func(loc []int) (time.Time, bool, bool) { return resolveMonthDay(text, loc, ref, true) }},
		{clockOnlyRe.FindStringSubmatchIndex(text), func(loc []int) (time.Time, bool, bool) { return resolveClockOnly(text, loc, ref) }},
	}

	best := -1
	for i, c := range cands {
		if c.loc == nil {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		b := cands[best].loc
		if c.loc[0] < b[0] || (c.loc[0] == b[0] && c.loc[1] > b[1]) {
			best = i
		}
	}
	if best == -1 {
		return Match{}, false
	}

	loc := cands[best].loc
	instant, explicitDay, ok := cands[best].fn(loc)
	if !ok {
		return Match{}, false
	}

	if !explicitDay && instant.Before(ref) {
		// "9am" said at 3pm means 9am tomorrow. One calendar day, not 24h,
		// so the wall clock survives DST transitions.
		instant = instant.AddDate(0, 0, 1)
	}

	return Match{
		Text:        text[loc[0]:loc[1]],
		Start:       loc[0],
		End:         loc[1],
		Time:        instant,
		ExplicitDay: explicitDay,
	}, true
}

func group(text string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

func resolveRelative(text string, loc []int, ref time.Time) (time.Time, bool, bool) {
	nRaw := strings.ToLower(group(text, loc, 1))
	unit := strings.ToLower(group(text, loc, 2))

	n := 1
	if nRaw != "a" && nRaw != "an" {
		v, err := strconv.Atoi(nRaw)
		if err != nil {
			return time.Time{}, false, false
		}
		n = v
	}

	switch unit {
	case "minute", "min":
		return ref.Add(time.Duration(n) * time.Minute), true, true
	case "hour", "hr":
		return ref.Add(time.Duration(n) * time.Hour), true, true
	case "day":
		return ref.AddDate(0, 0, n), true, true
	case "week":
		return ref.AddDate(0, 0, 7*n), true, true
	}
	return time.Time{}, false, false
}

func resolveDayRef(text string, loc []int, ref time.Time) (time.Time, bool, bool) {
	word := strings.ToLower(group(text, loc, 1))
	clock := group(text, loc, 2)

	h, m := defaultHour, 0
	if word == "tonight" {
		h = tonightHour
	}
	if clock != "" {
		ch, cm, ok := parseClock(clock)
		if !ok {
			return time.Time{}, false, false
		}
		h, m = ch, cm
	}

	day := ref
	if word == "tomorrow" {
		day = day.AddDate(0, 0, 1)
	}
	return atClock(day, h, m), true, true
}

func resolveWeekday(text string, loc []int, ref time.Time) (time.Time, bool, bool) {
	modifier := strings.ToLower(group(text, loc, 1))
	name := strings.ToLower(group(text, loc, 2))
	clock := group(text, loc, 3)

	target, ok := weekdays[name]
	if !ok {
		return time.Time{}, false, false
	}

	h, m := defaultHour, 0
	if clock != "" {
		ch, cm, cok := parseClock(clock)
		if !cok {
			return time.Time{}, false, false
		}
		h, m = ch, cm
	}

	delta := (int(target) - int(ref.Weekday()) + 7) % 7
	if delta == 0 {
		// The named day is today: keep today only if the clock is still
		// ahead, otherwise jump to next week. "next" always skips today.
		if modifier == "next" || !atClock(ref, h, m).After(ref) {
			delta = 7
		}
	}

	return atClock(ref.AddDate(0, 0, delta), h, m), true, true
}

func resolveMonthDay(text string, loc []int, ref time.Time, dayFirst bool) (time.Time, bool, bool) {
	monthIdx, dayIdx := 1, 2
	if dayFirst {
		monthIdx, dayIdx = 2, 1
	}
	mon, ok := months[strings.ToLower(group(text, loc, monthIdx))[:3]]
	if !ok {
		return time.Time{}, false, false
	}
	day, err := strconv.Atoi(group(text, loc, dayIdx))
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false, false
	}

	year := ref.Year()
	if y := group(text, loc, 3); y != "" {
		v, err := strconv.Atoi(y)
		if err != nil {
			return time.Time{}, false, false
		}
		year = v
	}

	h, m := defaultHour, 0
	if clock := group(text, loc, 4); clock != "" {
		ch, cm, cok := parseClock(clock)
		if !cok {
			return time.Time{}, false, false
		}
		h, m = ch, cm
	}

	return time.Date(year, mon, day, h, m, 0, 0, ref.Location()), true, true
}

func resolveClockOnly(text string, loc []int, ref time.Time) (time.Time, bool, bool) {
	h, m, ok := parseClock(group(text, loc, 1))
	if !ok {
		return time.Time{}, false, false
	}
	return atClock(ref, h, m), false, true
}

// parseClock parses "9am", "2:30pm" or 24h "14:00" into an hour and minute.
// AM/PM normalization: 12am is hour 0, 12pm is hour 12, other PM hours +12.
// Minutes default to 0 when omitted.
func parseClock(s string) (hour, minute int, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))

	meridiem := ""
	switch {
	case strings.HasSuffix(s, "am"):
		meridiem = "am"
	case strings.HasSuffix(s, "pm"):
		meridiem = "pm"
	}
	if meridiem != "" {
		s = strings.TrimSpace(strings.TrimSuffix(s, meridiem))
	}

	hs, ms, hasMin := strings.Cut(s, ":")
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, false
	}
	m := 0
	if hasMin {
		m, err = strconv.Atoi(ms)
		if err != nil || m < 0 || m > 59 {
			return 0, 0, false
		}
	}

	if meridiem != "" {
		if h < 1 || h > 12 {
			return 0, 0, false
		}
		if meridiem == "am" && h == 12 {
			h = 0
		}
		if meridiem == "pm" && h != 12 {
			h += 12
		}
	} else if h < 0 || h > 23 {
		return 0, 0, false
	}

	return h, m, true
}

// atClock returns day's calendar date at the given wall clock time,
// in day's location.
func atClock(day time.Time, hour, minute int) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, hour, minute, 0, 0, day.Location())
}
