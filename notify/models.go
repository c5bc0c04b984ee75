package notify

import "time"

// Notification is a durable in-app message for one user. The reference ids
// are optional and let the UI deep-link to the match and items involved.
type Notification struct {
	ID          string
	UserID      string
	Kind        string
	Message     string
	MatchID     *string
	LostItemID  *string
	FoundItemID *string
	Read        bool
	CreatedAt   time.Time
}

// CreateParams enumerates the fields required to record a notification.
type CreateParams struct {
	UserID      string
	Kind        string
	Message     string
	MatchID     *string
	LostItemID  *string
	FoundItemID *string
}
