package types

// UploadRequest is one file submitted to a brain. It only lives for the
// duration of the request.
type UploadRequest struct {
	File            []byte
	FileName        string
	BrainID         string
	UserID          string
	Integration     string
	IntegrationLink string
	NotificationID  string
	BulkID          string
}

type UploadResult struct {
	Message        string `json:"message"`
	KnowledgeID    string `json:"knowledge_id"`
	NotificationID string `json:"notification_id,omitempty"`
}
