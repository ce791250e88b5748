package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is the AM/PM marker of a clock time.
type Period string

const (
	AM Period = "AM"
	PM Period = "PM"
)

var ErrInvalidTimeRange = errors.New("invalid order time range")

// TimeRange is the daily window in which incoming orders are counted as
// "today in range" on the dashboard.
type TimeRange struct {
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	StartPeriod Period `json:"startPeriod"`
	EndPeriod   Period `json:"endPeriod"`
}

// DefaultTimeRange is 09:00 AM to 06:00 PM.
func DefaultTimeRange() TimeRange {
	return TimeRange{StartTime: "09:00", EndTime: "06:00", StartPeriod: AM, EndPeriod: PM}
}

// Minutes converts "hh:mm" plus period into minutes after midnight.
// Hours above 12 are taken as 24-hour clock and the period is ignored.
func Minutes(clock string, p Period) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeRange, clock)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: hour %q", ErrInvalidTimeRange, h)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: minute %q", ErrInvalidTimeRange, m)
	}

	if hours <= 12 {
		switch strings.ToUpper(string(p)) {
		case string(PM):
			if hours != 12 {
				hours += 12
			}
		case string(AM):
			if hours == 12 {
				hours = 0
			}
		default:
			return 0, fmt.Errorf("%w: period %q", ErrInvalidTimeRange, p)
		}
	}
	return hours*60 + minutes, nil
}

// Bounds returns start and end as minutes after midnight.
func (tr TimeRange) Bounds() (start, end int, err error) {
	if start, err = Minutes(tr.StartTime, tr.StartPeriod); err != nil {
		return 0, 0, err
	}
	if end, err = Minutes(tr.EndTime, tr.EndPeriod); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Validate checks both ends parse and the window does not run backwards.
func (tr TimeRange) Validate() error {
	start, end, err := tr.Bounds()
	if err != nil {
		return err
	}
	if end < start {
		return fmt.Errorf("%w: end before start", ErrInvalidTimeRange)
	}
	return nil
}

// Contains reports whether t falls on the same calendar day as now (in now's
// location) and inside the window, both ends inclusive.
func (tr TimeRange) Contains(t, now time.Time) bool {
	start, end, err := tr.Bounds()
	if err != nil {
		return false
	}
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty != ny || tm != nm || td != nd {
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= start && mins <= end
}
