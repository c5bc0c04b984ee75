package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lostfound/item"
	"lostfound/match"
)

// Env bundles the services and identities the actors operate as.
type Env struct {
	Pool     *pgxpool.Pool
	Items    *item.Service
	Matches  *match.Service
	OwnerID  string
	FinderID string
}

const sharedSecret = "torn zipper tag"

var itemNames = []string{
	"black leather wallet",
	"wallet",
	"blue backpack",
	"backpack with stickers",
	"grey umbrella",
	"silver house key",
}

var categories = []string{"accessories", "bags"}

// LostReporter keeps filing lost reports whose names overlap the found pool,
// so every insert can race the reverse matching path.
func LostReporter(ctx context.Context, env Env, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := env.Items.ReportLost(ctx, item.CreateLostParams{
			OwnerID:          env.OwnerID,
			ItemName:         itemNames[rand.Intn(len(itemNames))],
			Description:      "stress lost report",
			Category:         categories[rand.Intn(len(categories))],
			SecretIdentifier: sharedSecret,
			LostDate:         time.Now().AddDate(0, 0, -rand.Intn(6)),
			Location:         "central station",
		})
		if err != nil && !recoverable(err) {
			return fmt.Errorf("lost reporter: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// FoundReporter mirrors LostReporter from the finder's side.
func FoundReporter(ctx context.Context, env Env, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := env.Items.ReportFound(ctx, item.CreateFoundParams{
			FinderID:    env.FinderID,
			ItemName:    itemNames[rand.Intn(len(itemNames))],
			Description: "stress found report",
			Category:    categories[rand.Intn(len(categories))],
			FoundDate:   time.Now().AddDate(0, 0, -rand.Intn(6)),
			Location:    "lost property office",
		})
		if err != nil && !recoverable(err) {
			return fmt.Errorf("found reporter: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// Pairer inserts match rows for random same-category pairs directly, racing
// the service paths on the (lost_item_id, found_item_id) unique index.
func Pairer(ctx context.Context, env Env, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var lostID, foundID string
		err := env.Pool.QueryRow(ctx, `SELECT l.id, f.id FROM lost_items l
                  JOIN found_items f ON f.category = l.category
                  WHERE l.status = 'lost' AND f.status = 'found'
                  ORDER BY random() LIMIT 1`).Scan(&lostID, &foundID)
		if err == nil {
			_, err = env.Pool.Exec(ctx, `INSERT INTO matches (lost_item_id, found_item_id, loser_id, finder_id, status)
                       VALUES ($1,$2,$3,$4,'pending')`, lostID, foundID, env.OwnerID, env.FinderID)
			var pgErr *pgconn.PgError
			if err != nil && errors.As(err, &pgErr) && pgErr.Code == "23505" {
				err = nil // expected under contention
			}
		}
		if err != nil && !recoverable(err) {
			return fmt.Errorf("pairer insert: %w", err)
		}
		time.Sleep(time.Duration(15+rand.Intn(25)) * time.Millisecond)
	}
}

// Verifier picks a random pending match and attempts verification as the
// owner, guessing wrong about half the time to exercise the one-shot path.
func Verifier(ctx context.Context, env Env, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		matchID, ok := randomPending(ctx, env)
		if ok {
			secret := sharedSecret
			if rand.Intn(2) == 0 {
				secret = "wrong guess"
			}
			if _, err := env.Matches.Verify(ctx, match.VerifyParams{
				MatchID:          matchID,
				SecretIdentifier: secret,
				RequestingUserID: env.OwnerID,
			}); err != nil && !domainOutcome(err) && !recoverable(err) {
				return fmt.Errorf("verifier: %w", err)
			}
		}
		time.Sleep(time.Duration(25+rand.Intn(50)) * time.Millisecond)
	}
}

// Rejecter dismisses random pending matches, racing the Verifier on the
// same rows.
func Rejecter(ctx context.Context, env Env, stop <-chan struct{}) error {
	reason := "does not look like mine"
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		matchID, ok := randomPending(ctx, env)
		if ok {
			if _, err := env.Matches.Reject(ctx, match.RejectParams{
				MatchID:          matchID,
				Reason:           &reason,
				RequestingUserID: env.OwnerID,
			}); err != nil && !domainOutcome(err) && !recoverable(err) {
				return fmt.Errorf("rejecter: %w", err)
			}
		}
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

func randomPending(ctx context.Context, env Env) (string, bool) {
	var id string
	err := env.Pool.QueryRow(ctx, `SELECT id FROM matches WHERE status = 'pending' AND loser_id = $1
              ORDER BY random() LIMIT 1`, env.OwnerID).Scan(&id)
	return id, err == nil
}

// domainOutcome reports whether err is an expected business refusal rather
// than an infrastructure failure.
func domainOutcome(err error) bool {
	var state *match.InvalidStateError
	return errors.Is(err, match.ErrMatchNotFound) ||
		errors.Is(err, match.ErrNotOwner) ||
		errors.Is(err, match.ErrLostItemUnresolved) ||
		errors.As(err, &state)
}

// recoverable reports whether err looks like a dropped connection, which the
// chaos agent induces deliberately.
func recoverable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "conn closed") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "unexpected EOF") ||
		strings.Contains(msg, "57P01") || // admin shutdown
		strings.Contains(msg, "terminating connection")
}
