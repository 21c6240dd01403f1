package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRange  = errors.New("end date before start date")
	ErrBlockedPeriod = errors.New("range overlaps a blocked period")
)

// HolidaySource provides the holiday dataset consulted by net-duration
// computation. Deliberately separate from CalendarStore's holiday rows.
type HolidaySource interface {
	ActiveHolidays(ctx context.Context, year int) ([]HolidayWindow, error)
}

type CalendarStore interface {
	AddHoliday(ctx context.Context, holiday Holiday) (string, error)
	HolidaysForYear(ctx context.Context, year int) ([]Holiday, error)
	AddBlockedPeriod(ctx context.Context, period BlockedPeriod) (string, error)
	BlockedPeriodsForYear(ctx context.Context, year int) ([]BlockedPeriod, error)
}

type Engine struct {
	Store    CalendarStore
	Holidays HolidaySource
}

func NewEngine(store CalendarStore, holidays HolidaySource) *Engine {
	return &Engine{Store: store, Holidays: holidays}
}

// AddHoliday records a holiday for the target year. Recurring holidays keep
// their month/day but are normalized onto the target year. Repeated calls
// append duplicates; no dedupe is attempted.
func (e *Engine) AddHoliday(ctx context.Context, year int, input HolidayInput) (string, error) {
	date := input.Date
	if input.IsRecurring {
		date = time.Date(year, date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}
	return e.Store.AddHoliday(ctx, Holiday{
		Year:        year,
		Name:        input.Name,
		Date:        date,
		IsRecurring: input.IsRecurring,
		Type:        input.Type,
		Region:      input.Region,
	})
}

func (e *Engine) HolidaysForYear(ctx context.Context, year int) ([]Holiday, error) {
	return e.Store.HolidaysForYear(ctx, year)
}

// AddBlockedPeriod appends a blocked range; reason defaults to the name.
func (e *Engine) AddBlockedPeriod(ctx context.Context, year int, input BlockedPeriodInput) (string, error) {
	if input.EndDate.Before(input.StartDate) {
		return "", ErrInvalidRange
	}
	reason := input.Reason
	if reason == "" {
		reason = input.Name
	}
	return e.Store.AddBlockedPeriod(ctx, BlockedPeriod{
		Year:   year,
		Name:   input.Name,
		From:   startOfDay(input.StartDate),
		To:     endOfDay(input.EndDate),
		Reason: reason,
	})
}

func (e *Engine) BlockedPeriodsForYear(ctx context.Context, year int) ([]BlockedPeriod, error) {
	return e.Store.BlockedPeriodsForYear(ctx, year)
}

// NetLeaveDuration counts working days in [start, end]: weekends are skipped,
// days inside a holiday window from the external holiday source are skipped,
// and any overlap with a blocked period rejects the range outright.
func (e *Engine) NetLeaveDuration(ctx context.Context, start, end time.Time, year int) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidRange
	}

	blocked, err := e.Store.BlockedPeriodsForYear(ctx, year)
	if err != nil {
		return 0, err
	}
	rangeStart := startOfDay(start)
	rangeEnd := endOfDay(end)
	for _, period := range blocked {
		if rangeStart.Before(period.To) && period.From.Before(rangeEnd) {
			return 0, fmt.Errorf("%w: %s (%s to %s)", ErrBlockedPeriod, period.Name,
				period.From.Format("2006-01-02"), period.To.Format("2006-01-02"))
		}
	}

	windows, err := e.Holidays.ActiveHolidays(ctx, year)
	if err != nil {
		return 0, err
	}

	count := 0
	for day := rangeStart; !day.After(rangeEnd); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		if inHolidayWindow(day, windows) {
			continue
		}
		count++
	}
	return count, nil
}

func inHolidayWindow(day time.Time, windows []HolidayWindow) bool {
	for _, window := range windows {
		start := startOfDay(window.Start)
		end := window.End
		if end.IsZero() {
			end = window.Start
		}
		if !day.Before(start) && !day.After(endOfDay(end)) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
