package delegation

import "time"

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Delegation is a manager's temporary reassignment of approval authority.
// Durably stored, keyed by manager: one live delegation per manager.
type Delegation struct {
	ID         string     `json:"id"`
	ManagerID  string     `json:"managerId"`
	DelegateID string     `json:"delegateId"`
	StartDate  time.Time  `json:"startDate"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	IsActive   bool       `json:"isActive"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// covers reports whether the delegation window contains the given date. A nil
// end date means open-ended.
func (d Delegation) covers(at time.Time) bool {
	if at.Before(d.StartDate) {
		return false
	}
	if d.EndDate != nil && at.After(*d.EndDate) {
		return false
	}
	return true
}

type StatusResult struct {
	Exists     bool       `json:"exists"`
	Active     bool       `json:"active"`
	Status     string     `json:"status,omitempty"`
	DelegateID string     `json:"delegateId,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
}
