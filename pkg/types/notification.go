package types

type NotificationStatus string

const (
	NOTIFICATION_STATUS_INFO    NotificationStatus = "INFO"
	NOTIFICATION_STATUS_SUCCESS NotificationStatus = "SUCCESS"
	NOTIFICATION_STATUS_WARNING NotificationStatus = "WARNING"
	NOTIFICATION_STATUS_ERROR   NotificationStatus = "ERROR"
)

const NOTIFICATION_CATEGORY_UPLOAD = "upload"

// Notification is a user visible status record of an asynchronous operation.
type Notification struct {
	ID          string             `json:"id" db:"id"`
	UserID      string             `json:"user_id" db:"user_id"`
	BrainID     string             `json:"brain_id" db:"brain_id"`
	BulkID      string             `json:"bulk_id" db:"bulk_id"`
	Title       string             `json:"title" db:"title"`
	Category    string             `json:"category" db:"category"`
	Status      NotificationStatus `json:"status" db:"status"`
	Description string             `json:"description" db:"description"`
	CreatedAt   int64              `json:"created_at" db:"created_at"`
	UpdatedAt   int64              `json:"updated_at" db:"updated_at"`
}

type NotificationUpdate struct {
	Status      NotificationStatus
	Description string
}
