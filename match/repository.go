package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrMatchNotFound signals the match does not exist.
	ErrMatchNotFound = errors.New("match: not found")
	// ErrMatchDuplicate signals the (lost_item_id, found_item_id) pair is
	// already matched. Raised by the storage layer's unique constraint; the
	// creation path converts it into a silent skip and it is never surfaced
	// to external callers.
	ErrMatchDuplicate = errors.New("match: pair already matched")
	// ErrLostItemRequired signals a create attempt without a lost item.
	ErrLostItemRequired = errors.New("match: lost item id required")
	// ErrFoundItemRequired signals a create attempt without a found item.
	ErrFoundItemRequired = errors.New("match: found item id required")
)

// Repository is the durable match store. Uniqueness of the
// (lost_item_id, found_item_id) pair is enforced by the database index, not
// by callers; Find before Create is only an optimisation against racing
// triggers. Transition writes take a pgx.Tx so the caller can bundle them
// with item-status cascades.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Match, error)
	Find(ctx context.Context, lostItemID, foundItemID string) (Match, error)
	GetByID(ctx context.Context, matchID string) (Match, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, matchID string) (Match, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, matchID string, status Status) (Match, error)
	ListForUser(ctx context.Context, userID string) ([]Match, error)
	ListForLostItem(ctx context.Context, lostItemID string) ([]Match, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const matchColumns = `id, lost_item_id, found_item_id, loser_id, finder_id, status::text, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Match, error) {
	if params.LostItemID == "" {
		return Match{}, ErrLostItemRequired
	}
	if params.FoundItemID == "" {
		return Match{}, ErrFoundItemRequired
	}

	query := fmt.Sprintf(`
		INSERT INTO matches (lost_item_id, found_item_id, loser_id, finder_id)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, matchColumns)

	m, err := scanMatch(r.pool.QueryRow(ctx, query,
		params.LostItemID,
		params.FoundItemID,
		params.LoserID,
		params.FinderID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Match{}, ErrMatchDuplicate
		}
		return Match{}, fmt.Errorf("match: create: %w", err)
	}
	return m, nil
}

func (r *PGRepository) Find(ctx context.Context, lostItemID, foundItemID string) (Match, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM matches WHERE lost_item_id = $1 AND found_item_id = $2
	`, matchColumns)

	m, err := scanMatch(r.pool.QueryRow(ctx, query, lostItemID, foundItemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, ErrMatchNotFound
		}
		return Match{}, fmt.Errorf("match: find pair: %w", err)
	}
	return m, nil
}

func (r *PGRepository) GetByID(ctx context.Context, matchID string) (Match, error) {
	query := fmt.Sprintf(`SELECT %s FROM matches WHERE id = $1`, matchColumns)

	m, err := scanMatch(r.pool.QueryRow(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, ErrMatchNotFound
		}
		return Match{}, fmt.Errorf("match: get: %w", err)
	}
	return m, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, matchID string) (Match, error) {
	query := fmt.Sprintf(`SELECT %s FROM matches WHERE id = $1 FOR UPDATE`, matchColumns)

	m, err := scanMatch(tx.QueryRow(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, ErrMatchNotFound
		}
		return Match{}, fmt.Errorf("match: lock: %w", err)
	}
	return m, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, matchID string, status Status) (Match, error) {
	query := fmt.Sprintf(`
		UPDATE matches
		SET status = $2::match_status, updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, matchColumns)

	m, err := scanMatch(tx.QueryRow(ctx, query, matchID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, ErrMatchNotFound
		}
		return Match{}, fmt.Errorf("match: update status: %w", err)
	}
	return m, nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Match, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM matches
		WHERE loser_id = $1 OR finder_id = $1
		ORDER BY created_at DESC
	`, matchColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("match: list for user: %w", err)
	}
	defer rows.Close()

	out := make([]Match, 0, 8)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("match: scan user match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("match: iterate user matches: %w", err)
	}
	return out, nil
}

func (r *PGRepository) ListForLostItem(ctx context.Context, lostItemID string) ([]Match, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM matches
		WHERE lost_item_id = $1
		ORDER BY created_at DESC
	`, matchColumns)

	rows, err := r.pool.Query(ctx, query, lostItemID)
	if err != nil {
		return nil, fmt.Errorf("match: list for lost item: %w", err)
	}
	defer rows.Close()

	out := make([]Match, 0, 8)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("match: scan lost item match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("match: iterate lost item matches: %w", err)
	}
	return out, nil
}

func scanMatch(row pgx.Row) (Match, error) {
	var m Match
	return m, row.Scan(
		&m.ID,
		&m.LostItemID,
		&m.FoundItemID,
		&m.LoserID,
		&m.FinderID,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}
