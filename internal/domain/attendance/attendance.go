package attendance

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ExceptionLeave = "LEAVE_BLOCK"

// LeaveBlock is a time exception that excuses an employee from
// clock-in/clock-out expectations for an approved leave span.
type LeaveBlock struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Kind       string    `json:"kind"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}
