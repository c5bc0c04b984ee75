package item

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrLostNotFound signals the lost item does not exist.
	ErrLostNotFound = errors.New("item: lost item not found")
	// ErrFoundNotFound signals the found item does not exist.
	ErrFoundNotFound = errors.New("item: found item not found")
)

// Repository is the registry surface the rest of the system depends on.
// Status mutators take a pgx.Tx so the match service can cascade item status
// changes atomically with a match transition; no other caller may use them.
type Repository interface {
	CreateLost(ctx context.Context, params CreateLostParams) (LostItem, error)
	CreateFound(ctx context.Context, params CreateFoundParams) (FoundItem, error)
	GetLost(ctx context.Context, id string) (LostItem, error)
	GetFound(ctx context.Context, id string) (FoundItem, error)
	GetLostForUpdate(ctx context.Context, tx pgx.Tx, id string) (LostItem, error)
	GetFoundForUpdate(ctx context.Context, tx pgx.Tx, id string) (FoundItem, error)
	SetLostStatus(ctx context.Context, tx pgx.Tx, id string, status LostStatus) error
	SetFoundStatus(ctx context.Context, tx pgx.Tx, id string, status FoundStatus) error
	FoundCandidates(ctx context.Context, category, name string, from, to time.Time) ([]FoundItem, error)
	LostCandidates(ctx context.Context, category, name string, from, to time.Time) ([]LostItem, error)
	ListLostByOwner(ctx context.Context, ownerID string) ([]LostItem, error)
	ListFoundByFinder(ctx context.Context, finderID string) ([]FoundItem, error)
	ListOpenLost(ctx context.Context) ([]LostItem, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const lostColumns = `id, owner_id, item_name, description, category, secret_identifier, lost_date, location, image_path, status::text, created_at, updated_at`

const foundColumns = `id, finder_id, item_name, description, category, found_date, location, image_path, status::text, created_at, updated_at`

func (r *PGRepository) CreateLost(ctx context.Context, params CreateLostParams) (LostItem, error) {
	query := fmt.Sprintf(`
		INSERT INTO lost_items (owner_id, item_name, description, category, secret_identifier, lost_date, location, image_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s
	`, lostColumns)

	row := r.pool.QueryRow(ctx, query,
		params.OwnerID,
		params.ItemName,
		params.Description,
		params.Category,
		params.SecretIdentifier,
		params.LostDate,
		params.Location,
		params.ImagePath,
	)
	lost, err := scanLost(row)
	if err != nil {
		return LostItem{}, fmt.Errorf("item: create lost: %w", err)
	}
	return lost, nil
}

func (r *PGRepository) CreateFound(ctx context.Context, params CreateFoundParams) (FoundItem, error) {
	query := fmt.Sprintf(`
		INSERT INTO found_items (finder_id, item_name, description, category, found_date, location, image_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, foundColumns)

	row := r.pool.QueryRow(ctx, query,
		params.FinderID,
		params.ItemName,
		params.Description,
		params.Category,
		params.FoundDate,
		params.Location,
		params.ImagePath,
	)
	found, err := scanFound(row)
	if err != nil {
		return FoundItem{}, fmt.Errorf("item: create found: %w", err)
	}
	return found, nil
}

func (r *PGRepository) GetLost(ctx context.Context, id string) (LostItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM lost_items WHERE id = $1`, lostColumns)
	lost, err := scanLost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LostItem{}, ErrLostNotFound
		}
		return LostItem{}, fmt.Errorf("item: get lost: %w", err)
	}
	return lost, nil
}

func (r *PGRepository) GetFound(ctx context.Context, id string) (FoundItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM found_items WHERE id = $1`, foundColumns)
	found, err := scanFound(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FoundItem{}, ErrFoundNotFound
		}
		return FoundItem{}, fmt.Errorf("item: get found: %w", err)
	}
	return found, nil
}

func (r *PGRepository) GetLostForUpdate(ctx context.Context, tx pgx.Tx, id string) (LostItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM lost_items WHERE id = $1 FOR UPDATE`, lostColumns)
	lost, err := scanLost(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LostItem{}, ErrLostNotFound
		}
		return LostItem{}, fmt.Errorf("item: lock lost: %w", err)
	}
	return lost, nil
}

func (r *PGRepository) GetFoundForUpdate(ctx context.Context, tx pgx.Tx, id string) (FoundItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM found_items WHERE id = $1 FOR UPDATE`, foundColumns)
	found, err := scanFound(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FoundItem{}, ErrFoundNotFound
		}
		return FoundItem{}, fmt.Errorf("item: lock found: %w", err)
	}
	return found, nil
}

func (r *PGRepository) SetLostStatus(ctx context.Context, tx pgx.Tx, id string, status LostStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE lost_items
		SET status = $2::lost_item_status, updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("item: set lost status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLostNotFound
	}
	return nil
}

func (r *PGRepository) SetFoundStatus(ctx context.Context, tx pgx.Tx, id string, status FoundStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE found_items
		SET status = $2::found_item_status, updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("item: set found status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFoundNotFound
	}
	return nil
}

// FoundCandidates returns found items in the given category whose found_date
// lies inside [from, to] and whose name contains name case-insensitively.
// The name is matched as a literal: LIKE metacharacters in it are escaped so
// user-controlled text cannot act as a wildcard pattern.
func (r *PGRepository) FoundCandidates(ctx context.Context, category, name string, from, to time.Time) ([]FoundItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM found_items
		WHERE category = $1
		  AND found_date >= $2
		  AND found_date <= $3
		  AND item_name ILIKE $4 ESCAPE '\'
	`, foundColumns)

	rows, err := r.pool.Query(ctx, query, category, from, to, containsPattern(name))
	if err != nil {
		return nil, fmt.Errorf("item: query found candidates: %w", err)
	}
	defer rows.Close()

	out := make([]FoundItem, 0, 8)
	for rows.Next() {
		found, err := scanFound(rows)
		if err != nil {
			return nil, fmt.Errorf("item: scan found candidate: %w", err)
		}
		out = append(out, found)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item: iterate found candidates: %w", err)
	}
	return out, nil
}

// LostCandidates is the reverse direction of FoundCandidates: lost items
// whose name contains the (escaped) found-item name.
func (r *PGRepository) LostCandidates(ctx context.Context, category, name string, from, to time.Time) ([]LostItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lost_items
		WHERE category = $1
		  AND lost_date >= $2
		  AND lost_date <= $3
		  AND item_name ILIKE $4 ESCAPE '\'
	`, lostColumns)

	rows, err := r.pool.Query(ctx, query, category, from, to, containsPattern(name))
	if err != nil {
		return nil, fmt.Errorf("item: query lost candidates: %w", err)
	}
	defer rows.Close()

	out := make([]LostItem, 0, 8)
	for rows.Next() {
		lost, err := scanLost(rows)
		if err != nil {
			return nil, fmt.Errorf("item: scan lost candidate: %w", err)
		}
		out = append(out, lost)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item: iterate lost candidates: %w", err)
	}
	return out, nil
}

func (r *PGRepository) ListLostByOwner(ctx context.Context, ownerID string) ([]LostItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM lost_items WHERE owner_id = $1 ORDER BY created_at DESC
	`, lostColumns)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("item: list lost by owner: %w", err)
	}
	defer rows.Close()

	out := make([]LostItem, 0, 8)
	for rows.Next() {
		lost, err := scanLost(rows)
		if err != nil {
			return nil, fmt.Errorf("item: scan lost: %w", err)
		}
		out = append(out, lost)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item: iterate lost: %w", err)
	}
	return out, nil
}

func (r *PGRepository) ListFoundByFinder(ctx context.Context, finderID string) ([]FoundItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM found_items WHERE finder_id = $1 ORDER BY created_at DESC
	`, foundColumns)

	rows, err := r.pool.Query(ctx, query, finderID)
	if err != nil {
		return nil, fmt.Errorf("item: list found by finder: %w", err)
	}
	defer rows.Close()

	out := make([]FoundItem, 0, 8)
	for rows.Next() {
		found, err := scanFound(rows)
		if err != nil {
			return nil, fmt.Errorf("item: scan found: %w", err)
		}
		out = append(out, found)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item: iterate found: %w", err)
	}
	return out, nil
}

// ListOpenLost returns every lost item still awaiting reclamation. The batch
// re-scan entry point uses it to re-run matching across the whole registry.
func (r *PGRepository) ListOpenLost(ctx context.Context) ([]LostItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM lost_items WHERE status = 'lost' ORDER BY created_at ASC
	`, lostColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("item: list open lost: %w", err)
	}
	defer rows.Close()

	out := make([]LostItem, 0, 32)
	for rows.Next() {
		lost, err := scanLost(rows)
		if err != nil {
			return nil, fmt.Errorf("item: scan open lost: %w", err)
		}
		out = append(out, lost)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item: iterate open lost: %w", err)
	}
	return out, nil
}

// containsPattern builds the "%name%" ILIKE pattern with LIKE metacharacters
// in name neutralised. Escaping applies in both search directions; the raw
// name is always the user-supplied side of the comparison.
func containsPattern(name string) string {
	return "%" + escapeLike(name) + "%"
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func scanLost(row pgx.Row) (LostItem, error) {
	var lost LostItem
	return lost, row.Scan(
		&lost.ID,
		&lost.OwnerID,
		&lost.ItemName,
		&lost.Description,
		&lost.Category,
		&lost.SecretIdentifier,
		&lost.LostDate,
		&lost.Location,
		&lost.ImagePath,
		&lost.Status,
		&lost.CreatedAt,
		&lost.UpdatedAt,
	)
}

func scanFound(row pgx.Row) (FoundItem, error) {
	var found FoundItem
	return found, row.Scan(
		&found.ID,
		&found.FinderID,
		&found.ItemName,
		&found.Description,
		&found.Category,
		&found.FoundDate,
		&found.Location,
		&found.ImagePath,
		&found.Status,
		&found.CreatedAt,
		&found.UpdatedAt,
	)
}
