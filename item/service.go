package item

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	// ErrNameRequired signals a missing item name.
	ErrNameRequired = errors.New("item: item name required")
	// ErrCategoryRequired signals a missing category.
	ErrCategoryRequired = errors.New("item: category required")
	// ErrSecretRequired signals a lost-item report without a secret mark.
	ErrSecretRequired = errors.New("item: secret identifier required")
	// ErrDateRequired signals a missing lost/found date.
	ErrDateRequired = errors.New("item: date required")
)

// Matcher is the slice of the match lifecycle the registry triggers after an
// item is durably persisted. Implementations must contain their own failures:
// a matching pass that goes wrong never fails the item creation.
type Matcher interface {
	MatchLostItem(ctx context.Context, lost LostItem) []string
	MatchFoundItem(ctx context.Context, found FoundItem) []string
}

// Service owns item registration. Matching runs synchronously after the
// insert but under its own deadline so a slow pass cannot stall the caller.
type Service struct {
	repo         Repository
	matcher      Matcher
	logger       *slog.Logger
	matchTimeout time.Duration
}

func NewService(repo Repository, matcher Matcher) *Service {
	return &Service{
		repo:         repo,
		matcher:      matcher,
		logger:       slog.Default(),
		matchTimeout: 15 * time.Second,
	}
}

func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

func (s *Service) WithMatchTimeout(d time.Duration) *Service {
	s.matchTimeout = d
	return s
}

// ReportLost persists a lost-item report and triggers forward matching
// against the found registry.
func (s *Service) ReportLost(ctx context.Context, params CreateLostParams) (LostItem, error) {
	if params.OwnerID == "" {
		return LostItem{}, fmt.Errorf("item: missing owner id")
	}
	params.ItemName = strings.TrimSpace(params.ItemName)
	if params.ItemName == "" {
		return LostItem{}, ErrNameRequired
	}
	if strings.TrimSpace(params.Category) == "" {
		return LostItem{}, ErrCategoryRequired
	}
	if strings.TrimSpace(params.SecretIdentifier) == "" {
		return LostItem{}, ErrSecretRequired
	}
	if params.LostDate.IsZero() {
		return LostItem{}, ErrDateRequired
	}

	lost, err := s.repo.CreateLost(ctx, params)
	if err != nil {
		return LostItem{}, err
	}

	if s.matcher != nil {
		matchCtx, cancel := context.WithTimeout(ctx, s.matchTimeout)
		created := s.matcher.MatchLostItem(matchCtx, lost)
		cancel()
		s.logger.Info("lost item matching finished",
			"lost_item_id", lost.ID, "matches_created", len(created))
	}

	return lost, nil
}

// ReportFound persists a found-item report and triggers reverse matching
// against the lost registry.
func (s *Service) ReportFound(ctx context.Context, params CreateFoundParams) (FoundItem, error) {
	if params.FinderID == "" {
		return FoundItem{}, fmt.Errorf("item: missing finder id")
	}
	params.ItemName = strings.TrimSpace(params.ItemName)
	if params.ItemName == "" {
		return FoundItem{}, ErrNameRequired
	}
	if strings.TrimSpace(params.Category) == "" {
		return FoundItem{}, ErrCategoryRequired
	}
	if params.FoundDate.IsZero() {
		return FoundItem{}, ErrDateRequired
	}

	found, err := s.repo.CreateFound(ctx, params)
	if err != nil {
		return FoundItem{}, err
	}

	if s.matcher != nil {
		matchCtx, cancel := context.WithTimeout(ctx, s.matchTimeout)
		created := s.matcher.MatchFoundItem(matchCtx, found)
		cancel()
		s.logger.Info("found item matching finished",
			"found_item_id", found.ID, "matches_created", len(created))
	}

	return found, nil
}

// PublicLost returns the owner-scrubbed projection of a lost item. The
// secret identifier never leaves this package through a public read.
func (s *Service) PublicLost(ctx context.Context, id string) (PublicLostItem, error) {
	lost, err := s.repo.GetLost(ctx, id)
	if err != nil {
		return PublicLostItem{}, err
	}
	return PublicLostItem{
		ID:          lost.ID,
		ItemName:    lost.ItemName,
		Description: lost.Description,
		Category:    lost.Category,
		LostDate:    lost.LostDate,
		Location:    lost.Location,
		ImagePath:   lost.ImagePath,
		CreatedAt:   lost.CreatedAt,
	}, nil
}

// PublicFound returns the public projection of a found item.
func (s *Service) PublicFound(ctx context.Context, id string) (PublicFoundItem, error) {
	found, err := s.repo.GetFound(ctx, id)
	if err != nil {
		return PublicFoundItem{}, err
	}
	return PublicFoundItem{
		ID:          found.ID,
		ItemName:    found.ItemName,
		Description: found.Description,
		Category:    found.Category,
		FoundDate:   found.FoundDate,
		Location:    found.Location,
		ImagePath:   found.ImagePath,
		CreatedAt:   found.CreatedAt,
	}, nil
}

// MyLost lists the caller's own lost-item reports, newest first.
func (s *Service) MyLost(ctx context.Context, ownerID string) ([]LostItem, error) {
	return s.repo.ListLostByOwner(ctx, ownerID)
}

// MyFound lists the caller's own found-item reports, newest first.
func (s *Service) MyFound(ctx context.Context, finderID string) ([]FoundItem, error) {
	return s.repo.ListFoundByFinder(ctx, finderID)
}
