package calendar

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) AddHoliday(ctx context.Context, holiday Holiday) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO calendar_holidays (year, name, date, is_recurring, type, region)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, holiday.Year, holiday.Name, holiday.Date, holiday.IsRecurring,
		holiday.Type, holiday.Region).Scan(&id)
	return id, err
}

func (s *Store) HolidaysForYear(ctx context.Context, year int) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, year, name, date, is_recurring, COALESCE(type, ''), COALESCE(region, ''), created_at
    FROM calendar_holidays
    WHERE year = $1
    ORDER BY date
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Year, &h.Name, &h.Date, &h.IsRecurring, &h.Type, &h.Region, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) AddBlockedPeriod(ctx context.Context, period BlockedPeriod) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO calendar_blocked_periods (year, name, date_from, date_to, reason)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, period.Year, period.Name, period.From, period.To, period.Reason).Scan(&id)
	return id, err
}

func (s *Store) BlockedPeriodsForYear(ctx context.Context, year int) ([]BlockedPeriod, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, year, name, date_from, date_to, reason, created_at
    FROM calendar_blocked_periods
    WHERE year = $1
    ORDER BY date_from
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BlockedPeriod
	for rows.Next() {
		var p BlockedPeriod
		if err := rows.Scan(&p.ID, &p.Year, &p.Name, &p.From, &p.To, &p.Reason, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HolidayTableSource reads the external public-holiday dataset. This is not
// the calendar_holidays table: net-duration computation consults this source
// while AddHoliday writes the calendar's own rows.
type HolidayTableSource struct {
	DB *pgxpool.Pool
}

func NewHolidayTableSource(db *pgxpool.Pool) *HolidayTableSource {
	return &HolidayTableSource{DB: db}
}

func (s *HolidayTableSource) ActiveHolidays(ctx context.Context, year int) ([]HolidayWindow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT start_date, COALESCE(end_date, start_date)
    FROM public_holidays
    WHERE EXTRACT(YEAR FROM start_date) = $1 AND is_active
    ORDER BY start_date
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HolidayWindow
	for rows.Next() {
		var w HolidayWindow
		if err := rows.Scan(&w.Start, &w.End); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
