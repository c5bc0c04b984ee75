package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lostfound/item"

	"github.com/jackc/pgx/v5"
)

// matchWindow is the symmetric search window around an item's own date.
const matchWindow = 7 * 24 * time.Hour

var (
	// ErrSecretRequired signals a verification call without a usable secret.
	ErrSecretRequired = errors.New("match: secret identifier required")
	// ErrNotOwner signals the caller is not the lost item's owner.
	ErrNotOwner = errors.New("match: only the lost item's owner may act on this match")
	// ErrLostItemUnresolved signals the match references a lost item that no
	// longer resolves. Data inconsistency, not a user error.
	ErrLostItemUnresolved = errors.New("match: lost item reference unresolved")
)

// Notification kinds emitted by the lifecycle.
const (
	KindMatchCreated  = "match_created"
	KindMatchAccepted = "match_accepted"
	KindMatchRejected = "match_rejected"
)

// Notification is the best-effort event handed to the emitter. Meta ids let
// the consuming UI deep-link; FoundItemID may be empty on owner-side events.
type Notification struct {
	UserID      string
	Kind        string
	Message     string
	MatchID     string
	LostItemID  string
	FoundItemID string
}

// Notifier delivers user-facing notifications. Delivery is fire and forget:
// the service logs and swallows every error it returns.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// ItemDirectory is the slice of the item registry the lifecycle needs. The
// ForUpdate/Set methods run inside the verification transaction; only this
// service may mutate item status fields.
type ItemDirectory interface {
	GetLost(ctx context.Context, id string) (item.LostItem, error)
	FoundCandidates(ctx context.Context, category, name string, from, to time.Time) ([]item.FoundItem, error)
	LostCandidates(ctx context.Context, category, name string, from, to time.Time) ([]item.LostItem, error)
	GetLostForUpdate(ctx context.Context, tx pgx.Tx, id string) (item.LostItem, error)
	GetFoundForUpdate(ctx context.Context, tx pgx.Tx, id string) (item.FoundItem, error)
	SetLostStatus(ctx context.Context, tx pgx.Tx, id string, status item.LostStatus) error
	SetFoundStatus(ctx context.Context, tx pgx.Tx, id string, status item.FoundStatus) error
}

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service is the match lifecycle controller: it turns candidate pairs into
// pending matches and drives them through verification.
type Service struct {
	pool     TxBeginner
	repo     Repository
	items    ItemDirectory
	notifier Notifier
	logger   *slog.Logger
}

func NewService(pool TxBeginner, repo Repository, items ItemDirectory, notifier Notifier) *Service {
	return &Service{
		pool:     pool,
		repo:     repo,
		items:    items,
		notifier: notifier,
		logger:   slog.Default(),
	}
}

func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// CreateForLost runs the forward creation path: search found items matching
// the freshly reported lost item, persist deduplicated pending matches, and
// notify both parties. All failures are contained here; the caller only ever
// sees the (possibly empty) set of newly created matches.
func (s *Service) CreateForLost(ctx context.Context, lost item.LostItem) []Match {
	from, to := window(lost.LostDate, lost.CreatedAt)

	candidates, err := s.items.FoundCandidates(ctx, lost.Category, lost.ItemName, from, to)
	if err != nil {
		s.logger.Warn("found-candidate search failed", "lost_item_id", lost.ID, "error", err)
		return nil
	}

	created := make([]Match, 0, len(candidates))
	for _, found := range candidates {
		m, ok := s.createPair(ctx, lost, found)
		if !ok {
			continue
		}
		created = append(created, m)
	}
	return created
}

// CreateForFound runs the reverse creation path after a found item is
// reported. Same window, category, and literal-substring rules with the
// direction of the name containment flipped.
func (s *Service) CreateForFound(ctx context.Context, found item.FoundItem) []Match {
	from, to := window(found.FoundDate, found.CreatedAt)

	candidates, err := s.items.LostCandidates(ctx, found.Category, found.ItemName, from, to)
	if err != nil {
		s.logger.Warn("lost-candidate search failed", "found_item_id", found.ID, "error", err)
		return nil
	}

	created := make([]Match, 0, len(candidates))
	for _, lost := range candidates {
		m, ok := s.createPair(ctx, lost, found)
		if !ok {
			continue
		}
		created = append(created, m)
	}
	return created
}

// createPair persists a single pending match for the pair unless one already
// exists. The pre-check is an optimisation: racing triggers are settled by
// the store's unique constraint, and the loser of that race skips silently.
func (s *Service) createPair(ctx context.Context, lost item.LostItem, found item.FoundItem) (Match, bool) {
	if _, err := s.repo.Find(ctx, lost.ID, found.ID); err == nil {
		return Match{}, false
	} else if !errors.Is(err, ErrMatchNotFound) {
		s.logger.Warn("match pre-check failed", "lost_item_id", lost.ID, "found_item_id", found.ID, "error", err)
		return Match{}, false
	}

	var finderID *string
	if found.FinderID != "" {
		finderID = &found.FinderID
	}

	m, err := s.repo.Create(ctx, CreateParams{
		LostItemID:  lost.ID,
		FoundItemID: found.ID,
		LoserID:     lost.OwnerID,
		FinderID:    finderID,
	})
	switch {
	case errors.Is(err, ErrMatchDuplicate):
		// Lost the race against the opposite trigger; the pair is matched.
		return Match{}, false
	case err != nil:
		s.logger.Warn("match create failed", "lost_item_id", lost.ID, "found_item_id", found.ID, "error", err)
		return Match{}, false
	}

	s.send(ctx, Notification{
		UserID:      m.LoserID,
		Kind:        KindMatchCreated,
		Message:     fmt.Sprintf("New match found for %q", lost.ItemName),
		MatchID:     m.ID,
		LostItemID:  m.LostItemID,
		FoundItemID: m.FoundItemID,
	})
	if m.FinderID != nil {
		s.send(ctx, Notification{
			UserID:      *m.FinderID,
			Kind:        KindMatchCreated,
			Message:     fmt.Sprintf("Your found item may match %q", lost.ItemName),
			MatchID:     m.ID,
			LostItemID:  m.LostItemID,
			FoundItemID: m.FoundItemID,
		})
	}

	return m, true
}

// VerifyParams carries a verification attempt.
type VerifyParams struct {
	MatchID          string
	SecretIdentifier string
	RequestingUserID string
}

// Verify lets the lost item's owner confirm a match with the secret
// identifier. On a correct secret the lost item becomes reclaimed, the found
// item returned, and the match accepted, all in one transaction. A wrong
// secret terminally rejects the match in the same call: verification is
// one-shot per match, a wrong guess never gets a retry.
func (s *Service) Verify(ctx context.Context, params VerifyParams) (VerifyResult, error) {
	secret := strings.TrimSpace(params.SecretIdentifier)
	if secret == "" {
		return VerifyResult{}, ErrSecretRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("match: begin verify tx: %w", err)
	}
	defer tx.Rollback(ctx)

	m, lost, err := s.lockPendingForOwner(ctx, tx, params.MatchID, params.RequestingUserID)
	if err != nil {
		return VerifyResult{}, err
	}

	if !strings.EqualFold(secret, strings.TrimSpace(lost.SecretIdentifier)) {
		rejected, err := s.repo.UpdateStatus(ctx, tx, m.ID, StatusRejected)
		if err != nil {
			return VerifyResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return VerifyResult{}, fmt.Errorf("match: commit rejection: %w", err)
		}

		if rejected.FinderID != nil {
			s.send(ctx, Notification{
				UserID:      *rejected.FinderID,
				Kind:        KindMatchRejected,
				Message:     "Owner checked the match and said it is not a match.",
				MatchID:     rejected.ID,
				LostItemID:  rejected.LostItemID,
				FoundItemID: rejected.FoundItemID,
			})
		}
		return VerifyResult{Match: rejected, Accepted: false}, nil
	}

	if err := s.items.SetLostStatus(ctx, tx, lost.ID, item.LostStatusReclaimed); err != nil {
		return VerifyResult{}, err
	}

	found, err := s.items.GetFoundForUpdate(ctx, tx, m.FoundItemID)
	switch {
	case err == nil:
		if err := s.items.SetFoundStatus(ctx, tx, found.ID, item.FoundStatusReturned); err != nil {
			return VerifyResult{}, err
		}
	case errors.Is(err, item.ErrFoundNotFound):
		// Found item is gone; accept the match anyway, its status cascade
		// simply has nothing to land on.
	default:
		return VerifyResult{}, err
	}

	accepted, err := s.repo.UpdateStatus(ctx, tx, m.ID, StatusAccepted)
	if err != nil {
		return VerifyResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return VerifyResult{}, fmt.Errorf("match: commit acceptance: %w", err)
	}

	s.send(ctx, Notification{
		UserID:      accepted.LoserID,
		Kind:        KindMatchAccepted,
		Message:     fmt.Sprintf("You accepted a match for %q. The lost item is now marked as reclaimed.", lost.ItemName),
		MatchID:     accepted.ID,
		LostItemID:  accepted.LostItemID,
		FoundItemID: accepted.FoundItemID,
	})
	if accepted.FinderID != nil {
		s.send(ctx, Notification{
			UserID:      *accepted.FinderID,
			Kind:        KindMatchAccepted,
			Message:     "The owner verified the match. Please coordinate to return the item.",
			MatchID:     accepted.ID,
			LostItemID:  accepted.LostItemID,
			FoundItemID: accepted.FoundItemID,
		})
	}

	return VerifyResult{Match: accepted, Accepted: true}, nil
}

// RejectParams carries an owner-initiated rejection.
type RejectParams struct {
	MatchID          string
	Reason           *string
	RequestingUserID string
}

// Reject lets the owner dismiss a pending match without touching item
// statuses: declining a candidate does not claim the item was found.
func (s *Service) Reject(ctx context.Context, params RejectParams) (Match, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("match: begin reject tx: %w", err)
	}
	defer tx.Rollback(ctx)

	m, _, err := s.lockPendingForOwner(ctx, tx, params.MatchID, params.RequestingUserID)
	if err != nil {
		return Match{}, err
	}

	rejected, err := s.repo.UpdateStatus(ctx, tx, m.ID, StatusRejected)
	if err != nil {
		return Match{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Match{}, fmt.Errorf("match: commit reject: %w", err)
	}

	if rejected.FinderID != nil {
		message := "Owner rejected the match."
		if params.Reason != nil {
			if reason := strings.TrimSpace(*params.Reason); reason != "" {
				message = fmt.Sprintf("Owner rejected the match. Reason: %s", reason)
			}
		}
		s.send(ctx, Notification{
			UserID:      *rejected.FinderID,
			Kind:        KindMatchRejected,
			Message:     message,
			MatchID:     rejected.ID,
			LostItemID:  rejected.LostItemID,
			FoundItemID: rejected.FoundItemID,
		})
	}

	return rejected, nil
}

// lockPendingForOwner loads the match and its lost item under row locks and
// runs the shared verify/reject preconditions in order: match exists, lost
// item resolves, caller owns it, match still pending.
func (s *Service) lockPendingForOwner(ctx context.Context, tx pgx.Tx, matchID, userID string) (Match, item.LostItem, error) {
	m, err := s.repo.GetForUpdate(ctx, tx, matchID)
	if err != nil {
		return Match{}, item.LostItem{}, err
	}

	lost, err := s.items.GetLostForUpdate(ctx, tx, m.LostItemID)
	if err != nil {
		if errors.Is(err, item.ErrLostNotFound) {
			return Match{}, item.LostItem{}, ErrLostItemUnresolved
		}
		return Match{}, item.LostItem{}, err
	}
	if lost.OwnerID != userID {
		return Match{}, item.LostItem{}, ErrNotOwner
	}
	if m.Status != StatusPending {
		return Match{}, item.LostItem{}, &InvalidStateError{Status: m.Status}
	}

	return m, lost, nil
}

// MatchesForUser lists matches the user participates in, newest first,
// annotated with the side they stand on.
func (s *Service) MatchesForUser(ctx context.Context, userID string) ([]UserMatch, error) {
	matches, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]UserMatch, 0, len(matches))
	for _, m := range matches {
		role := RoleFinder
		if m.LoserID == userID {
			role = RoleOwner
		}
		out = append(out, UserMatch{Match: m, Role: role})
	}
	return out, nil
}

// MatchesForLostItem lists candidate matches for one lost item. Owner only.
func (s *Service) MatchesForLostItem(ctx context.Context, lostItemID, userID string) ([]Match, error) {
	lost, err := s.items.GetLost(ctx, lostItemID)
	if err != nil {
		return nil, err
	}
	if lost.OwnerID != userID {
		return nil, ErrNotOwner
	}
	return s.repo.ListForLostItem(ctx, lostItemID)
}

// MatchLostItem adapts CreateForLost to the registry's trigger interface.
func (s *Service) MatchLostItem(ctx context.Context, lost item.LostItem) []string {
	return matchIDs(s.CreateForLost(ctx, lost))
}

// MatchFoundItem adapts CreateForFound to the registry's trigger interface.
func (s *Service) MatchFoundItem(ctx context.Context, found item.FoundItem) []string {
	return matchIDs(s.CreateForFound(ctx, found))
}

func matchIDs(matches []Match) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids
}

// send delivers one notification, logging and swallowing any failure. A
// notifier outage must never unwind a match transition.
func (s *Service) send(ctx context.Context, n Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn("notification delivery failed",
			"user_id", n.UserID, "kind", n.Kind, "match_id", n.MatchID, "error", err)
	}
}

// window computes the inclusive ±7 day search window around the item's own
// date, falling back to its creation timestamp when the date is unset.
func window(date, createdAt time.Time) (time.Time, time.Time) {
	anchor := date
	if anchor.IsZero() {
		anchor = createdAt
	}
	if anchor.IsZero() {
		anchor = time.Now()
	}
	return anchor.Add(-matchWindow), anchor.Add(matchWindow)
}
