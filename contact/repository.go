package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrRequestNotFound signals the contact request does not exist.
	ErrRequestNotFound = errors.New("contact: request not found")
	// ErrDuplicatePending signals the requester already has a pending
	// request for this found item.
	ErrDuplicatePending = errors.New("contact: pending request already exists")
)

// Repository handles contact-request persistence.
type Repository interface {
	Create(ctx context.Context, foundItemID, requesterID, finderID, message string) (Request, error)
	GetByID(ctx context.Context, id string) (Request, error)
	ListByFinder(ctx context.Context, finderID string) ([]Request, error)
	ListByRequester(ctx context.Context, requesterID string) ([]Request, error)
	Resolve(ctx context.Context, id string, status Status, shared *SharedDetails) (Request, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const requestColumns = `id, found_item_id, requester_id, finder_id, message, status::text, shared_email, shared_phone, shared_note, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, foundItemID, requesterID, finderID, message string) (Request, error) {
	query := fmt.Sprintf(`
		INSERT INTO contact_requests (found_item_id, requester_id, finder_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, requestColumns)

	req, err := scanRequest(r.pool.QueryRow(ctx, query, foundItemID, requesterID, finderID, message))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Request{}, ErrDuplicatePending
		}
		return Request{}, fmt.Errorf("contact: create request: %w", err)
	}
	return req, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM contact_requests WHERE id = $1`, requestColumns)

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrRequestNotFound
		}
		return Request{}, fmt.Errorf("contact: get request: %w", err)
	}
	return req, nil
}

func (r *PGRepository) ListByFinder(ctx context.Context, finderID string) ([]Request, error) {
	return r.list(ctx, `finder_id`, finderID)
}

func (r *PGRepository) ListByRequester(ctx context.Context, requesterID string) ([]Request, error) {
	return r.list(ctx, `requester_id`, requesterID)
}

func (r *PGRepository) list(ctx context.Context, column, userID string) ([]Request, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM contact_requests WHERE %s = $1 ORDER BY created_at DESC
	`, requestColumns, column)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("contact: list requests: %w", err)
	}
	defer rows.Close()

	out := make([]Request, 0, 8)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("contact: scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contact: iterate requests: %w", err)
	}
	return out, nil
}

// Resolve transitions a pending request to accepted or declined. The status
// guard is part of the WHERE clause so a concurrent double-resolve loses
// cleanly with ErrRequestNotFound semantics handled by the service.
func (r *PGRepository) Resolve(ctx context.Context, id string, status Status, shared *SharedDetails) (Request, error) {
	var email, phone, note *string
	if shared != nil {
		email, phone, note = &shared.Email, &shared.Phone, &shared.Note
	}

	query := fmt.Sprintf(`
		UPDATE contact_requests
		SET status = $2::contact_request_status,
		    shared_email = $3,
		    shared_phone = $4,
		    shared_note = $5,
		    updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, requestColumns)

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id, status, email, phone, note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrRequestNotFound
		}
		return Request{}, fmt.Errorf("contact: resolve request: %w", err)
	}
	return req, nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		req   Request
		email *string
		phone *string
		note  *string
	)
	err := row.Scan(
		&req.ID,
		&req.FoundItemID,
		&req.RequesterID,
		&req.FinderID,
		&req.Message,
		&req.Status,
		&email,
		&phone,
		&note,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return Request{}, err
	}

	if email != nil || phone != nil || note != nil {
		shared := SharedDetails{}
		if email != nil {
			shared.Email = *email
		}
		if phone != nil {
			shared.Phone = *phone
		}
		if note != nil {
			shared.Note = *note
		}
		req.Shared = &shared
	}
	return req, nil
}
