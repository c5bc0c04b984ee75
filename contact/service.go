package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lostfound/auth"
	"lostfound/item"
	"lostfound/notify"
)

var (
	// ErrSelfRequest signals a finder asking for contact on their own item.
	ErrSelfRequest = errors.New("contact: cannot request contact on your own found item")
	// ErrNotFinder signals the caller is not the finder of the item.
	ErrNotFinder = errors.New("contact: only the finder may resolve this request")
	// ErrAlreadyResolved signals the request is no longer pending.
	ErrAlreadyResolved = errors.New("contact: request already resolved")
)

// FoundItemReader is the slice of the registry needed to validate requests.
type FoundItemReader interface {
	GetFound(ctx context.Context, id string) (item.FoundItem, error)
}

// UserReader resolves profile defaults when the finder shares contact.
type UserReader interface {
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
}

// Notifier records best-effort notifications for the consent workflow.
type Notifier interface {
	Create(ctx context.Context, params notify.CreateParams) (notify.Notification, error)
}

// Service runs the contact-disclosure consent workflow: a requester asks,
// the finder approves (sharing chosen details) or declines, and contact
// information only ever moves after an explicit approval.
type Service struct {
	repo     Repository
	items    FoundItemReader
	users    UserReader
	notifier Notifier
	logger   *slog.Logger
}

func NewService(repo Repository, items FoundItemReader, users UserReader, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		items:    items,
		users:    users,
		notifier: notifier,
		logger:   slog.Default(),
	}
}

func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Request opens a pending contact request toward the finder of a found item.
func (s *Service) Request(ctx context.Context, requesterID, foundItemID, message string) (Request, error) {
	if foundItemID == "" {
		return Request{}, fmt.Errorf("contact: found item id required")
	}

	found, err := s.items.GetFound(ctx, foundItemID)
	if err != nil {
		return Request{}, err
	}
	if found.FinderID == requesterID {
		return Request{}, ErrSelfRequest
	}

	req, err := s.repo.Create(ctx, found.ID, requesterID, found.FinderID, strings.TrimSpace(message))
	if err != nil {
		return Request{}, err
	}

	s.send(ctx, notify.CreateParams{
		UserID:      found.FinderID,
		Kind:        "contact_requested",
		Message:     fmt.Sprintf("Someone requested your contact for %q.", found.ItemName),
		FoundItemID: &found.ID,
	})

	return req, nil
}

// Received lists requests addressed to the caller as finder, newest first.
func (s *Service) Received(ctx context.Context, finderID string) ([]Request, error) {
	return s.repo.ListByFinder(ctx, finderID)
}

// Sent lists requests the caller has made, newest first.
func (s *Service) Sent(ctx context.Context, requesterID string) ([]Request, error) {
	return s.repo.ListByRequester(ctx, requesterID)
}

// Approve shares contact details with the requester. Empty email or phone
// fall back to the finder's profile values.
func (s *Service) Approve(ctx context.Context, finderID, requestID string, shared SharedDetails) (Request, error) {
	req, err := s.guard(ctx, finderID, requestID)
	if err != nil {
		return Request{}, err
	}

	if shared.Email == "" || shared.Phone == "" {
		if finder, err := s.users.GetUserByID(ctx, finderID); err == nil {
			if shared.Email == "" {
				shared.Email = finder.Email
			}
			if shared.Phone == "" && finder.Phone != nil {
				shared.Phone = *finder.Phone
			}
		}
	}

	resolved, err := s.repo.Resolve(ctx, req.ID, StatusAccepted, &shared)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return Request{}, ErrAlreadyResolved
		}
		return Request{}, err
	}

	s.send(ctx, notify.CreateParams{
		UserID:      resolved.RequesterID,
		Kind:        "contact_approved",
		Message:     "Finder shared contact details for your request.",
		FoundItemID: &resolved.FoundItemID,
	})

	return resolved, nil
}

// Decline refuses a pending request without disclosing anything.
func (s *Service) Decline(ctx context.Context, finderID, requestID string) (Request, error) {
	req, err := s.guard(ctx, finderID, requestID)
	if err != nil {
		return Request{}, err
	}

	resolved, err := s.repo.Resolve(ctx, req.ID, StatusDeclined, nil)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return Request{}, ErrAlreadyResolved
		}
		return Request{}, err
	}

	s.send(ctx, notify.CreateParams{
		UserID:      resolved.RequesterID,
		Kind:        "contact_declined",
		Message:     "Finder declined your contact request.",
		FoundItemID: &resolved.FoundItemID,
	})

	return resolved, nil
}

func (s *Service) guard(ctx context.Context, finderID, requestID string) (Request, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.FinderID != finderID {
		return Request{}, ErrNotFinder
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyResolved
	}
	return req, nil
}

func (s *Service) send(ctx context.Context, params notify.CreateParams) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, params); err != nil {
		s.logger.Warn("contact notification failed", "user_id", params.UserID, "kind", params.Kind, "error", err)
	}
}
