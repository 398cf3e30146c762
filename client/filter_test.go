package client

import (
	"fmt"
	"testing"
	"time"

	"github.com/coreybb/eventhub/models"
	"github.com/stretchr/testify/assert"
)

// Wednesday; the week runs Sunday 12 May to Saturday 18 May.
var filterNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2024, month, day, hour, 0, 0, 0, time.UTC)
}

func viewsAt(dates map[string]time.Time) []EventView {
	out := make([]EventView, 0, len(dates))
	for id, d := range dates {
		out = append(out, EventView{Event: models.Event{ID: id, Title: "Title " + id, Date: d}})
	}
	return out
}

func TestDatePreset_Range(t *testing.T) {
	tests := []struct {
		preset     DatePreset
		start, end time.Time
	}{
		{PresetToday, at(time.May, 15, 0), at(time.May, 16, 0)},
		{PresetCurrentWeek, at(time.May, 12, 0), at(time.May, 19, 0)},
		{PresetLastWeek, at(time.May, 5, 0), at(time.May, 12, 0)},
		{PresetCurrentMonth, at(time.May, 1, 0), at(time.June, 1, 0)},
		{PresetLastMonth, at(time.April, 1, 0), at(time.May, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			start, end, ok := tt.preset.Range(filterNow)
			assert.True(t, ok)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}

	_, _, ok := PresetNone.Range(filterNow)
	assert.False(t, ok)
}

func TestApplyFilter_Presets(t *testing.T) {
	events := viewsAt(map[string]time.Time{
		"today-late":   at(time.May, 15, 23),
		"sunday":       at(time.May, 12, 0),
		"saturday":     at(time.May, 18, 22),
		"next-sunday":  at(time.May, 19, 0),
		"last-week":    at(time.May, 8, 12),
		"end-of-month": at(time.May, 31, 23),
		"april":        at(time.April, 30, 9),
		"march":        at(time.March, 31, 9),
	})

	tests := []struct {
		preset DatePreset
		want   []string
	}{
		{PresetToday, []string{"today-late"}},
		{PresetCurrentWeek, []string{"sunday", "saturday", "today-late"}},
		{PresetLastWeek, []string{"last-week"}},
		{PresetCurrentMonth, []string{"today-late", "sunday", "saturday", "next-sunday", "last-week", "end-of-month"}},
		{PresetLastMonth, []string{"april"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			page := ApplyFilter(events, Filter{Presets: []DatePreset{tt.preset}}, filterNow)
			assert.ElementsMatch(t, tt.want, ids(page.Events))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestApplyFilter_SearchIsCaseInsensitive(t *testing.T) {
	events := []EventView{
		{Event: models.Event{ID: "1", Title: "Go Meetup", Date: filterNow}},
		{Event: models.Event{ID: "2", Title: "GOPHERCON", Date: filterNow}},
		{Event: models.Event{ID: "3", Title: "Rust night", Date: filterNow}},
	}

	page := ApplyFilter(events, Filter{Search: "  go "}, filterNow)
	assert.Equal(t, []string{"1", "2"}, ids(page.Events))
}

func TestApplyFilter_CustomRangeIncludesWholeEndDay(t *testing.T) {
	events := viewsAt(map[string]time.Time{
		"before": at(time.April, 30, 23),
		"first":  at(time.May, 1, 0),
		"last":   at(time.May, 10, 23),
		"after":  at(time.May, 11, 0),
	})

	page := ApplyFilter(events, Filter{From: at(time.May, 1, 15), To: at(time.May, 10, 8)}, filterNow)
	assert.ElementsMatch(t, []string{"first", "last"}, ids(page.Events))

	// Half a range is ignored.
	page = ApplyFilter(events, Filter{From: at(time.May, 1, 0)}, filterNow)
	assert.Len(t, page.Events, 4)
}

func TestApplyFilter_PresetAndRangeCombine(t *testing.T) {
	events := viewsAt(map[string]time.Time{
		"early-may": at(time.May, 2, 10),
		"mid-may":   at(time.May, 14, 10),
		"april":     at(time.April, 14, 10),
	})

	page := ApplyFilter(events, Filter{
		Presets: []DatePreset{PresetCurrentMonth},
		From:    at(time.April, 1, 0),
		To:      at(time.May, 5, 0),
	}, filterNow)
	assert.Equal(t, []string{"early-may"}, ids(page.Events))
}

func TestApplyFilter_PresetsStack(t *testing.T) {
	events := viewsAt(map[string]time.Time{
		"this-week": at(time.May, 14, 10),
		"last-week": at(time.May, 8, 10),
		"april":     at(time.April, 30, 10),
	})

	tests := []struct {
		name    string
		presets []DatePreset
		want    []string
	}{
		{"month and week intersect", []DatePreset{PresetCurrentMonth, PresetCurrentWeek}, []string{"this-week"}},
		{"disjoint weeks match nothing", []DatePreset{PresetCurrentWeek, PresetLastWeek}, []string{}},
		{"none is ignored", []DatePreset{PresetNone, PresetLastMonth}, []string{"april"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := ApplyFilter(events, Filter{Presets: tt.presets}, filterNow)
			assert.ElementsMatch(t, tt.want, ids(page.Events))
		})
	}
}

func TestApplyFilter_Pagination(t *testing.T) {
	events := make([]EventView, 14)
	for i := range events {
		events[i] = EventView{Event: models.Event{ID: fmt.Sprint(i), Title: "Event", Date: filterNow}}
	}

	tests := []struct {
		name      string
		page      int
		number    int
		firstID   string
		pageCount int
	}{
		{"default", 0, 1, "0", 6},
		{"second", 2, 2, "6", 6},
		{"last partial", 3, 3, "12", 2},
		{"beyond end clamps", 10, 3, "12", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := ApplyFilter(events, Filter{Page: tt.page}, filterNow)
			assert.Equal(t, tt.number, page.Number)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, 14, page.Total)
			assert.Len(t, page.Events, tt.pageCount)
			assert.Equal(t, tt.firstID, page.Events[0].ID)
		})
	}
}

func TestApplyFilter_NoMatches(t *testing.T) {
	page := ApplyFilter(nil, Filter{Search: "anything", Page: 4}, filterNow)
	assert.Empty(t, page.Events)
	assert.Equal(t, 1, page.Number)
	assert.Zero(t, page.TotalPages)
	assert.Zero(t, page.Total)
}
