package match

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Match pairs one lost item with one found item, pending owner
// confirmation. Loser and finder are denormalised from the items at
// creation time; finder is nil when the found item had no finder on record.
// Matches are never deleted, terminal rows stay for history.
type Match struct {
	ID          string
	LostItemID  string
	FoundItemID string
	LoserID     string
	FinderID    *string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateParams enumerates the fields required to insert a new match.
type CreateParams struct {
	LostItemID  string
	FoundItemID string
	LoserID     string
	FinderID    *string
}

// Role is the side of a match a user stands on.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleFinder Role = "finder"
)

// UserMatch annotates a match with the viewing user's role in it.
type UserMatch struct {
	Match
	Role Role
}

// VerifyResult reports the outcome of a verification attempt. A wrong
// secret is a business outcome, not an error: Accepted is false and Match
// carries the now-rejected record.
type VerifyResult struct {
	Match    Match
	Accepted bool
}

// InvalidStateError reports an action attempted on a match already in a
// terminal state, naming the state it is in.
type InvalidStateError struct {
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("match: already %s", e.Status)
}
