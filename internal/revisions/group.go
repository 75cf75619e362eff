// Package revisions groups revision views into calendar day buckets for the
// wiki history tab.
package revisions

import (
	"time"

	"treelof-api/internal/timeutil"
)

// Dated is anything that knows which timestamp it is bucketed under.
type Dated interface {
	BucketTime() time.Time
}

// DateGroup is one calendar day of the history.
type DateGroup[T Dated] struct {
	Date      string `json:"date"`
	Revisions []T    `json:"revisions"`
}

// GroupByDate buckets items by timeutil.DayKey of their BucketTime. Groups
// come out in the order their first item appears and keep input order inside.
func GroupByDate[T Dated](items []T) []DateGroup[T] {
	groups := []DateGroup[T]{}
	index := map[string]int{}
	for _, item := range items {
		key := timeutil.DayKey(item.BucketTime())
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DateGroup[T]{Date: key})
		}
		groups[i].Revisions = append(groups[i].Revisions, item)
	}
	return groups
}
