package timeutil

import (
	"sync"
	"time"
)

// DateLayout is the day key used by the revision history view.
const DateLayout = "2006-01-02"

var (
	mu  sync.RWMutex
	loc = time.UTC
)

// SetLocation changes the zone used by DayKey. An unknown name leaves the
// current location untouched and returns the load error.
func SetLocation(name string) error {
	l, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	mu.Lock()
	loc = l
	mu.Unlock()
	return nil
}

// Location returns the zone used by DayKey.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return loc
}

// Now returns the current time in the configured location.
func Now() time.Time {
	return time.Now().In(Location())
}

// DayKey truncates t to its calendar day in the configured location.
func DayKey(t time.Time) string {
	return t.In(Location()).Format(DateLayout)
}
