package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Service persists in-app notifications and forwards them by email when a
// mailer is configured. Email delivery failures never propagate; the in-app
// row is the source of truth.
type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@leavehub.local"}
}

// Notify satisfies the leave flow's notifier contract.
func (s *Service) Notify(ctx context.Context, employeeID, kind, message string) error {
	if err := s.store.CreateNotification(ctx, employeeID, kind, message); err != nil {
		return err
	}

	if s.Mailer == nil {
		return nil
	}
	email, err := s.store.EmployeeEmail(ctx, employeeID)
	if err != nil {
		slog.Warn("notification email lookup failed", "employeeId", employeeID, "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, subjectFor(kind), message); err != nil {
		slog.Warn("notification email send failed", "employeeId", employeeID, "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, employeeID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, employeeID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, employeeID string) (int, error) {
	return s.store.CountUnread(ctx, employeeID)
}

func (s *Service) MarkRead(ctx context.Context, employeeID, notificationID string) error {
	return s.store.MarkRead(ctx, employeeID, notificationID)
}

func subjectFor(kind string) string {
	switch kind {
	case TypeLeaveApproved:
		return "Your leave request was approved"
	case TypeLeaveRejected:
		return "Your leave request was rejected"
	case TypeLeaveEscalated:
		return "A leave request needs your attention"
	case TypeLeaveSubmitted:
		return "A leave request is awaiting your approval"
	default:
		return "Leave notification"
	}
}
