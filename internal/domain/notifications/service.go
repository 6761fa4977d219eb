package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	Store       *Store
	Mailer      Mailer
	DefaultFrom string
}

func New(store *Store, mailer Mailer) *Service {
	return &Service{Store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Notify records the notification and, when the tenant has email enabled,
// sends it out. Email delivery is best-effort and never fails the caller.
func (s *Service) Notify(ctx context.Context, tenantID, userID, ntype, title, body string) error {
	if userID == "" {
		return nil
	}
	if err := s.Store.CreateNotification(ctx, tenantID, userID, ntype, title, body); err != nil {
		return err
	}
	if s.Mailer == nil {
		return nil
	}

	enabled, from, err := s.Store.EmailSettings(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Warn("notification settings lookup failed", "tenantId", tenantID, "err", err)
		}
		return nil
	}
	if !enabled {
		return nil
	}
	if from == "" {
		from = s.DefaultFrom
	}

	email, err := s.Store.UserEmail(ctx, tenantID, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, from, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error) {
	return s.Store.ListNotifications(ctx, tenantID, userID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, tenantID, userID string) (int, error) {
	return s.Store.CountUnread(ctx, tenantID, userID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	_, err := s.Store.MarkRead(ctx, tenantID, userID, notificationID)
	return err
}
