package notify

import (
	"context"
	"testing"

	"lostfound/match"
)

func TestSend_MapsLifecycleEvent(t *testing.T) {
	repo := &captureRepo{}
	svc := NewService(repo)

	err := svc.Send(context.Background(), match.Notification{
		UserID:     "owner-1",
		Kind:       match.KindMatchCreated,
		Message:    "New match found",
		MatchID:    "match-1",
		LostItemID: "lost-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one create, got %d", len(repo.created))
	}

	got := repo.created[0]
	if got.UserID != "owner-1" || got.Kind != match.KindMatchCreated {
		t.Errorf("unexpected params %+v", got)
	}
	if got.MatchID == nil || *got.MatchID != "match-1" {
		t.Errorf("expected match id pointer, got %v", got.MatchID)
	}
	if got.FoundItemID != nil {
		t.Errorf("empty ids must map to nil, got %v", got.FoundItemID)
	}
}

type captureRepo struct {
	created []CreateParams
}

func (c *captureRepo) Create(ctx context.Context, params CreateParams) (Notification, error) {
	c.created = append(c.created, params)
	return Notification{}, nil
}

func (c *captureRepo) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	return nil, nil
}

func (c *captureRepo) MarkRead(ctx context.Context, userID, notificationID string) (Notification, error) {
	return Notification{}, nil
}

func (c *captureRepo) MarkAllRead(ctx context.Context, userID string) error {
	return nil
}
