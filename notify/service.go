package notify

import (
	"context"

	"lostfound/match"
)

// Service exposes notification operations to the presentation layer and
// implements match.Notifier so the lifecycle can emit events through it.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Send records a match-lifecycle event as an in-app notification. Errors are
// returned to the caller, which treats delivery as best effort.
func (s *Service) Send(ctx context.Context, n match.Notification) error {
	_, err := s.repo.Create(ctx, CreateParams{
		UserID:      n.UserID,
		Kind:        n.Kind,
		Message:     n.Message,
		MatchID:     optional(n.MatchID),
		LostItemID:  optional(n.LostItemID),
		FoundItemID: optional(n.FoundItemID),
	})
	return err
}

// ListMine returns the caller's notifications, unread first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID)
}

// MarkRead flags one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) (Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead flags every unread notification of the caller as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
