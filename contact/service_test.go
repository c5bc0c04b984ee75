package contact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"lostfound/auth"
	"lostfound/item"
	"lostfound/notify"
)

func newTestService() (*Service, *fakeContactRepo, *fakeFoundReader, *fakeUsers, *fakeNotify) {
	repo := newFakeContactRepo()
	items := &fakeFoundReader{found: map[string]item.FoundItem{}}
	users := &fakeUsers{users: map[string]*auth.User{}}
	notifier := &fakeNotify{}
	svc := NewService(repo, items, users, notifier).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, repo, items, users, notifier
}

func TestRequest_OpensPendingAndNotifiesFinder(t *testing.T) {
	svc, _, items, _, notifier := newTestService()
	items.found["found-1"] = item.FoundItem{ID: "found-1", FinderID: "finder-1", ItemName: "blue backpack"}

	req, err := svc.Request(context.Background(), "requester-1", "found-1", "  I think that is mine  ")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	if req.FinderID != "finder-1" || req.RequesterID != "requester-1" {
		t.Errorf("unexpected parties %+v", req)
	}
	if req.Message != "I think that is mine" {
		t.Errorf("expected trimmed message, got %q", req.Message)
	}
	if len(notifier.created) != 1 || notifier.created[0].UserID != "finder-1" {
		t.Errorf("expected finder notification, got %+v", notifier.created)
	}
}

func TestRequest_OwnItemRefused(t *testing.T) {
	svc, _, items, _, _ := newTestService()
	items.found["found-1"] = item.FoundItem{ID: "found-1", FinderID: "finder-1"}

	_, err := svc.Request(context.Background(), "finder-1", "found-1", "")
	if !errors.Is(err, ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
}

func TestRequest_DuplicatePending(t *testing.T) {
	svc, _, items, _, _ := newTestService()
	items.found["found-1"] = item.FoundItem{ID: "found-1", FinderID: "finder-1"}

	if _, err := svc.Request(context.Background(), "requester-1", "found-1", ""); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := svc.Request(context.Background(), "requester-1", "found-1", "again")
	if !errors.Is(err, ErrDuplicatePending) {
		t.Fatalf("expected ErrDuplicatePending, got %v", err)
	}
}

func TestApprove_SharesWithProfileFallback(t *testing.T) {
	svc, _, items, users, notifier := newTestService()
	items.found["found-1"] = item.FoundItem{ID: "found-1", FinderID: "finder-1"}
	phone := "+49 555 0101"
	users.users["finder-1"] = &auth.User{ID: "finder-1", Email: "finder@example.com", Phone: &phone}

	req, err := svc.Request(context.Background(), "requester-1", "found-1", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	resolved, err := svc.Approve(context.Background(), "finder-1", req.ID, SharedDetails{Note: "ping me evenings"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resolved.Status != StatusAccepted {
		t.Errorf("expected accepted, got %s", resolved.Status)
	}
	if resolved.Shared == nil {
		t.Fatalf("expected shared details")
	}
	if resolved.Shared.Email != "finder@example.com" || resolved.Shared.Phone != phone {
		t.Errorf("expected profile fallback, got %+v", resolved.Shared)
	}
	if resolved.Shared.Note != "ping me evenings" {
		t.Errorf("expected the note to pass through, got %q", resolved.Shared.Note)
	}
	// request + approval notifications
	if len(notifier.created) != 2 || notifier.created[1].UserID != "requester-1" {
		t.Errorf("expected requester notified on approval, got %+v", notifier.created)
	}
}

func TestApprove_OnlyFinder(t *testing.T) {
	svc, _, items, _, _ := newTestService()
	items.found["found-1"] = item.FoundItem{ID: "found-1", FinderID: "finder-1"}

	req, err := svc.Request(context.Background(), "requester-1", "found-1", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	_, err = svc.Approve(context.Background(), "someone-else", req.ID, SharedDetails{})
	if !errors.Is(err, ErrNotFinder) {
		t.Fatalf("expected ErrNotFinder, got %v", err)
	}
}

func TestDecline_IsTerminal(t *testing.T) {
	svc, _, items, _, _ := newTestService()
	items.found["found-1"] = item.FoundItem{ID: "found-1", FinderID: "finder-1"}

	req, err := svc.Request(context.Background(), "requester-1", "found-1", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	declined, err := svc.Decline(context.Background(), "finder-1", req.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != StatusDeclined {
		t.Errorf("expected declined, got %s", declined.Status)
	}
	if declined.Shared != nil {
		t.Errorf("declining must not disclose details")
	}

	if _, err := svc.Approve(context.Background(), "finder-1", req.ID, SharedDetails{}); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved after decline, got %v", err)
	}
}

// --- fakes ---

type fakeContactRepo struct {
	requests map[string]Request
	nextID   int
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{requests: map[string]Request{}}
}

func (f *fakeContactRepo) Create(ctx context.Context, foundItemID, requesterID, finderID, message string) (Request, error) {
	for _, r := range f.requests {
		if r.FoundItemID == foundItemID && r.RequesterID == requesterID && r.Status == StatusPending {
			return Request{}, ErrDuplicatePending
		}
	}
	f.nextID++
	req := Request{
		ID:          fmt.Sprintf("req-%d", f.nextID),
		FoundItemID: foundItemID,
		RequesterID: requesterID,
		FinderID:    finderID,
		Message:     message,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeContactRepo) GetByID(ctx context.Context, id string) (Request, error) {
	if r, ok := f.requests[id]; ok {
		return r, nil
	}
	return Request{}, ErrRequestNotFound
}

func (f *fakeContactRepo) ListByFinder(ctx context.Context, finderID string) ([]Request, error) {
	var out []Request
	for _, r := range f.requests {
		if r.FinderID == finderID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeContactRepo) ListByRequester(ctx context.Context, requesterID string) ([]Request, error) {
	var out []Request
	for _, r := range f.requests {
		if r.RequesterID == requesterID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeContactRepo) Resolve(ctx context.Context, id string, status Status, shared *SharedDetails) (Request, error) {
	r, ok := f.requests[id]
	if !ok || r.Status != StatusPending {
		// mirrors the pending-only UPDATE guard in the store
		return Request{}, ErrRequestNotFound
	}
	r.Status = status
	r.Shared = shared
	r.UpdatedAt = time.Now()
	f.requests[id] = r
	return r, nil
}

type fakeFoundReader struct {
	found map[string]item.FoundItem
}

func (f *fakeFoundReader) GetFound(ctx context.Context, id string) (item.FoundItem, error) {
	if fi, ok := f.found[id]; ok {
		return fi, nil
	}
	return item.FoundItem{}, item.ErrFoundNotFound
}

type fakeUsers struct {
	users map[string]*auth.User
}

func (f *fakeUsers) GetUserByID(ctx context.Context, userID string) (*auth.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

type fakeNotify struct {
	created []notify.CreateParams
}

func (f *fakeNotify) Create(ctx context.Context, params notify.CreateParams) (notify.Notification, error) {
	f.created = append(f.created, params)
	return notify.Notification{}, nil
}
