package model

import (
	"fmt"
	"time"
)

// TimestampLayout is the layout of the window metadata fields.
// Times are always truncated to midnight UTC before formatting.
const TimestampLayout = "2006-01-02T15:04:05Z"

// DateLayout is the layout used for archive file names and --end-date.
const DateLayout = "2006-01-02"

// Window is the trailing date range covered by one run.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow returns the window that ends on the day of end (midnight UTC)
// and starts lookbackDays earlier.
func NewWindow(end time.Time, lookbackDays int) Window {
	e := midnight(end)
	return Window{
		Start: e.AddDate(0, 0, -lookbackDays),
		End:   e,
	}
}

// Validate checks that the window is not inverted.
func (w Window) Validate() error {
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: %s < %s", ErrInvalidWindow, w.EndAt(), w.StartAt())
	}
	return nil
}

// StartAt formats the window start for queries and row metadata.
func (w Window) StartAt() string {
	return midnight(w.Start).Format(TimestampLayout)
}

// EndAt formats the window end for queries and row metadata.
func (w Window) EndAt() string {
	return midnight(w.End).Format(TimestampLayout)
}

// EndDate returns the end date as YYYY-MM-DD.
func (w Window) EndDate() string {
	return w.End.UTC().Format(DateLayout)
}

// Days returns the number of whole days in the window.
func (w Window) Days() int {
	return int(midnight(w.End).Sub(midnight(w.Start)).Hours() / 24)
}

func midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
