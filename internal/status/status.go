package status

import (
	"fmt"
	"time"
)

// Tier is the reboot-health tier derived from the days elapsed since
// a PC last rebooted.
type Tier string

const (
	TierOK       Tier = "OK"
	TierDue      Tier = "DUE"
	TierCritical Tier = "CRITICAL"
)

// DefaultStaleTimeout is how long a PC may go without contact before
// it is presented as offline regardless of its stored status.
const DefaultStaleTimeout = 60 * time.Second

// Classification pairs a tier with the day count it was derived from.
type Classification struct {
	Tier Tier `json:"tier"`
	Days int  `json:"days"`
}

// Classify maps a last-reboot timestamp to a health tier. The boundary
// structure is fixed: up to 7 days is OK, 8 to 9 days means a reboot is
// due, 10 days or more is critical. A timestamp that does not parse is
// rejected. The same rule runs on the server and in the watcher so both
// agree given the same stored timestamp.
func Classify(lastReboot string, now time.Time) (Classification, error) {
	t, err := time.Parse(time.RFC3339, lastReboot)
	if err != nil {
		return Classification{}, fmt.Errorf("invalid last reboot timestamp %q: %w", lastReboot, err)
	}

	days := DaysSince(t, now)

	switch {
	case days <= 7:
		return Classification{Tier: TierOK, Days: days}, nil
	case days <= 9:
		return Classification{Tier: TierDue, Days: days}, nil
	default:
		return Classification{Tier: TierCritical, Days: days}, nil
	}
}

// DaysSince returns the number of full 24h days between t and now.
// A timestamp in the future counts as zero days.
func DaysSince(t time.Time, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// ShouldAlert returns the days remaining before a PC turns critical,
// which is non-zero only inside the 8 to 9 day window. It exists
// separately from Classify to drive one-shot countdown notifications;
// the caller de-duplicates per PC id.
func ShouldAlert(lastReboot string, now time.Time) (int, bool) {
	c, err := Classify(lastReboot, now)
	if err != nil {
		return 0, false
	}

	if c.Days >= 8 && c.Days < 10 {
		return 10 - c.Days, true
	}

	return 0, false
}

// IsStale reports whether lastSeen is older than timeout relative to now.
func IsStale(lastSeen time.Time, now time.Time, timeout time.Duration) bool {
	return now.Sub(lastSeen) > timeout
}
