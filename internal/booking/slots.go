package booking

import (
	"fmt"
	"time"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
)

// Hours is the bookable window of a day: starts from Open up to, but not
// including, Close, every Interval.
type Hours struct {
	Open     int
	Close    int
	Interval time.Duration
}

func DefaultHours() Hours {
	return Hours{Open: 8, Close: 18, Interval: DefaultInterval}
}

// parseTime parses an HH:MM time into its offset from midnight.
func parseTime(hhmm string) (time.Duration, error) {
	t, err := time.Parse(appointment.TimeLayout, hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", hhmm)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether hhmm is one of the start times AvailableSlots can
// produce: inside the window and a whole number of intervals after Open.
func (h Hours) Contains(hhmm string) bool {
	offset, err := parseTime(hhmm)
	if err != nil || h.Interval <= 0 {
		return false
	}
	open := time.Duration(h.Open) * time.Hour
	if offset < open || offset >= time.Duration(h.Close)*time.Hour {
		return false
	}
	return (offset-open)%h.Interval == 0
}

// AvailableSlots lists the HH:MM start times on day that are not in booked
// and, when day is today, not already past. now must be wall clock time
// expressed in UTC, the same frame appointment dates use.
func AvailableSlots(day appointment.Date, h Hours, booked map[string]struct{}, now time.Time) []string {
	if h.Interval <= 0 || h.Open >= h.Close {
		return []string{}
	}
	start := day.Time().Add(time.Duration(h.Open) * time.Hour)
	end := day.Time().Add(time.Duration(h.Close) * time.Hour)

	slots := make([]string, 0)
	for t := start; t.Before(end); t = t.Add(h.Interval) {
		if t.Before(now) {
			continue
		}
		label := t.Format(appointment.TimeLayout)
		if _, taken := booked[label]; taken {
			continue
		}
		slots = append(slots, label)
	}
	return slots
}

// BookedTimes collects the start times already taken on a day. Cancelled
// appointments free their slot.
func BookedTimes(appts []appointment.Appointment) map[string]struct{} {
	out := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		if a.Status == appointment.StatusCancelled || a.AppointmentTime == "" {
			continue
		}
		out[a.AppointmentTime] = struct{}{}
	}
	return out
}

// wallClock re-expresses t's local wall clock in UTC.
func wallClock(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
