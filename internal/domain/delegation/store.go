package delegation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Upsert(ctx context.Context, d Delegation) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO delegations (manager_id, delegate_id, start_date, end_date, is_active, status)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (manager_id) DO UPDATE SET
      delegate_id = EXCLUDED.delegate_id,
      start_date = EXCLUDED.start_date,
      end_date = EXCLUDED.end_date,
      is_active = EXCLUDED.is_active,
      status = EXCLUDED.status,
      updated_at = now()
  `, d.ManagerID, d.DelegateID, d.StartDate, d.EndDate, d.IsActive, d.Status)
	return err
}

func (s *Store) ByManager(ctx context.Context, managerID string) (*Delegation, error) {
	var d Delegation
	err := s.DB.QueryRow(ctx, `
    SELECT id, manager_id, delegate_id, start_date, end_date, is_active, status, created_at, updated_at
    FROM delegations
    WHERE manager_id = $1
  `, managerID).Scan(
		&d.ID, &d.ManagerID, &d.DelegateID, &d.StartDate, &d.EndDate,
		&d.IsActive, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) SetStatus(ctx context.Context, managerID, status string, isActive bool) error {
	var err error
	if status == "" {
		_, err = s.DB.Exec(ctx, "UPDATE delegations SET is_active = $2, updated_at = now() WHERE manager_id = $1", managerID, isActive)
	} else {
		_, err = s.DB.Exec(ctx, "UPDATE delegations SET status = $2, is_active = $3, updated_at = now() WHERE manager_id = $1", managerID, status, isActive)
	}
	return err
}

func (s *Store) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE delegations
    SET is_active = false, updated_at = now()
    WHERE is_active AND end_date IS NOT NULL AND end_date < $1
  `, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
