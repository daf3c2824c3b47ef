package services

import (
	"slices"
	"sort"
	"time"

	"eventcatalog/internal/domain"
)

// SortByStartDateDescending sorts events latest first. Events without a start
// date sort as greatest and come first; ties keep their relative order.
func SortByStartDateDescending(events []domain.Event) {
	slices.SortStableFunc(events, func(a, b domain.Event) int {
		as, aok := a.Start()
		bs, bok := b.Start()
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return -1
		case !bok:
			return 1
		}
		return bs.Compare(as)
	})
}

// SliceByDate returns the contiguous run of events starting within
// [startOfDay(ref), startOfDay(ref)+(plusDays+1) days). events must be sorted
// by SortByStartDateDescending. The result shares the input's backing array.
func SliceByDate(ref time.Time, plusDays int, events []domain.Event) []domain.Event {
	w := domain.DayWindow(ref, plusDays)
	// first event starting before the window end
	lo := sort.Search(len(events), func(i int) bool {
		s, ok := events[i].Start()
		return ok && s.Before(w.End)
	})
	// first event starting before the window start
	hi := sort.Search(len(events), func(i int) bool {
		s, ok := events[i].Start()
		return ok && s.Before(w.Start)
	})
	if hi < lo {
		hi = lo
	}
	return events[lo:hi]
}

// FilterCancelled returns the events whose status is not cancelled, in order.
func FilterCancelled(events []domain.Event) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if !e.IsCancelled() {
			out = append(out, e)
		}
	}
	return out
}
