package contact

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// SharedDetails is the contact information a finder chooses to disclose when
// approving a request. It lives on the request record, not the user profile,
// so the finder controls exactly what is shared per approval.
type SharedDetails struct {
	Email string
	Phone string
	Note  string
}

// Request bridges a requester asking for contact and the finder who posted
// the found item. At most one pending request exists per
// (found_item, requester) pair, enforced by a partial unique index.
type Request struct {
	ID          string
	FoundItemID string
	RequesterID string
	FinderID    string
	Message     string
	Status      Status
	Shared      *SharedDetails
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
