package item

import "time"

type LostStatus string

const (
	LostStatusLost      LostStatus = "lost"
	LostStatusReclaimed LostStatus = "reclaimed"
)

type FoundStatus string

const (
	FoundStatusFound    FoundStatus = "found"
	FoundStatusReturned FoundStatus = "returned"
)

// LostItem is the domain representation of a lost-item report. The
// SecretIdentifier is private to the owner and must never be exposed on a
// public read path; it exists on this struct solely so the match service can
// compare it during verification.
type LostItem struct {
	ID               string
	OwnerID          string
	ItemName         string
	Description      string
	Category         string
	SecretIdentifier string
	LostDate         time.Time
	Location         string
	ImagePath        *string
	Status           LostStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FoundItem is the domain representation of a found-item report. Found items
// carry no secret identifier; only the true owner knows that.
type FoundItem struct {
	ID          string
	FinderID    string
	ItemName    string
	Description string
	Category    string
	FoundDate   time.Time
	Location    string
	ImagePath   *string
	Status      FoundStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PublicLostItem is the owner-scrubbed projection served on public listings.
type PublicLostItem struct {
	ID          string
	ItemName    string
	Description string
	Category    string
	LostDate    time.Time
	Location    string
	ImagePath   *string
	CreatedAt   time.Time
}

// PublicFoundItem is the finder-scrubbed projection served on public listings.
type PublicFoundItem struct {
	ID          string
	ItemName    string
	Description string
	Category    string
	FoundDate   time.Time
	Location    string
	ImagePath   *string
	CreatedAt   time.Time
}

// CreateLostParams enumerates the fields required to report a lost item.
type CreateLostParams struct {
	OwnerID          string
	ItemName         string
	Description      string
	Category         string
	SecretIdentifier string
	LostDate         time.Time
	Location         string
	ImagePath        *string
}

// CreateFoundParams enumerates the fields required to report a found item.
type CreateFoundParams struct {
	FinderID    string
	ItemName    string
	Description string
	Category    string
	FoundDate   time.Time
	Location    string
	ImagePath   *string
}
