package notifications

import "time"

const (
	TypeLeaveSubmitted = "leave_submitted"
	TypeLeaveApproved  = "leave_approved"
	TypeLeaveRejected  = "leave_rejected"
	TypeLeaveEscalated = "leave_escalated"
	TypeLeaveSplit     = "leave_split"
	TypeDelegationSet  = "delegation_set"
)

type Notification struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employeeId"`
	Kind       string     `json:"kind"`
	Message    string     `json:"message"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
