package calendar

import "time"

// Holiday is a calendar-owned holiday marker. Recurring holidays are
// normalized onto the target year when added.
type Holiday struct {
	ID          string    `json:"id"`
	Year        int       `json:"year"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	IsRecurring bool      `json:"isRecurring"`
	Type        string    `json:"type,omitempty"`
	Region      string    `json:"region,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BlockedPeriod is an admin-defined range during which no leave may be taken.
type BlockedPeriod struct {
	ID        string    `json:"id"`
	Year      int       `json:"year"`
	Name      string    `json:"name"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// HolidayWindow is a holiday date range from the external holiday source used
// by net-duration computation. This dataset is distinct from the calendar's
// own Holiday rows; the two stores have drifted upstream and are kept separate
// until one is confirmed authoritative.
type HolidayWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type HolidayInput struct {
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	IsRecurring bool      `json:"isRecurring"`
	Type        string    `json:"type,omitempty"`
	Region      string    `json:"region,omitempty"`
}

type BlockedPeriodInput struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Reason    string    `json:"reason,omitempty"`
}
