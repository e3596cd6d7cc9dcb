package models

import "fmt"

// ListFilter selects a partition of a user's bookings. CURRENT and PAST are
// restricted to approved bookings; FUTURE covers any status, since a pending
// request for next week is still a future booking. WAITING and REJECTED are
// pure status filters.
type ListFilter string

const (
	FilterAll      ListFilter = "ALL"
	FilterCurrent  ListFilter = "CURRENT"
	FilterPast     ListFilter = "PAST"
	FilterFuture   ListFilter = "FUTURE"
	FilterWaiting  ListFilter = "WAITING"
	FilterRejected ListFilter = "REJECTED"
)

func ParseListFilter(raw string) (ListFilter, error) {
	if raw == "" {
		return FilterAll, nil
	}
	switch f := ListFilter(raw); f {
	case FilterAll, FilterCurrent, FilterPast, FilterFuture, FilterWaiting, FilterRejected:
		return f, nil
	default:
		return "", fmt.Errorf("unknown state: %s", raw)
	}
}
