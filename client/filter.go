package client

import (
	"strings"
	"time"
)

// EventsPerPage is the page size of the event browser.
const EventsPerPage = 6

type DatePreset string

const (
	PresetNone         DatePreset = ""
	PresetToday        DatePreset = "today"
	PresetCurrentWeek  DatePreset = "currentWeek"
	PresetLastWeek     DatePreset = "lastWeek"
	PresetCurrentMonth DatePreset = "currentMonth"
	PresetLastMonth    DatePreset = "lastMonth"
)

// Filter narrows the event list. Search matches titles case-insensitively.
// From and To form a custom range, inclusive of both days, and apply only
// when both are set. Presets stack with each other and with the custom
// range: an event must fall inside every one of them.
type Filter struct {
	Search  string
	Presets []DatePreset
	From    time.Time
	To      time.Time
	Page    int // 1-based; out-of-range values are clamped
}

type Page struct {
	Events     []EventView
	Number     int
	TotalPages int
	Total      int // Matching events across all pages
}

// dateRange is half-open: [start, end).
type dateRange struct {
	start, end time.Time
}

func (r dateRange) contains(t time.Time) bool {
	return !t.Before(r.start) && t.Before(r.end)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Range returns the days covered by p relative to now, in now's location.
// Weeks start on Sunday.
func (p DatePreset) Range(now time.Time) (start, end time.Time, ok bool) {
	today := startOfDay(now)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	switch p {
	case PresetToday:
		return today, today.AddDate(0, 0, 1), true
	case PresetCurrentWeek:
		return weekStart, weekStart.AddDate(0, 0, 7), true
	case PresetLastWeek:
		return weekStart.AddDate(0, 0, -7), weekStart, true
	case PresetCurrentMonth:
		return monthStart, monthStart.AddDate(0, 1, 0), true
	case PresetLastMonth:
		return monthStart.AddDate(0, -1, 0), monthStart, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func (f Filter) ranges(now time.Time) []dateRange {
	var out []dateRange
	for _, p := range f.Presets {
		if start, end, ok := p.Range(now); ok {
			out = append(out, dateRange{start, end})
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		from := startOfDay(f.From.In(now.Location()))
		to := startOfDay(f.To.In(now.Location())).AddDate(0, 0, 1)
		out = append(out, dateRange{from, to})
	}
	return out
}

// ApplyFilter returns the requested page of the events matching f. The input
// order is kept.
func ApplyFilter(events []EventView, f Filter, now time.Time) Page {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	ranges := f.ranges(now)

	matched := make([]EventView, 0, len(events))
	for _, e := range events {
		if search != "" && !strings.Contains(strings.ToLower(e.Title), search) {
			continue
		}
		if !inAll(ranges, e.Date.In(now.Location())) {
			continue
		}
		matched = append(matched, e)
	}

	totalPages := (len(matched) + EventsPerPage - 1) / EventsPerPage
	number := min(max(f.Page, 1), max(totalPages, 1))

	lo := min((number-1)*EventsPerPage, len(matched))
	hi := min(lo+EventsPerPage, len(matched))

	return Page{
		Events:     matched[lo:hi],
		Number:     number,
		TotalPages: totalPages,
		Total:      len(matched),
	}
}

func inAll(ranges []dateRange, t time.Time) bool {
	for _, r := range ranges {
		if !r.contains(t) {
			return false
		}
	}
	return true
}
