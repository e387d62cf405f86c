package types

// ProcessingJob is the message handed from the upload handler to the worker.
type ProcessingJob struct {
	BrainID          string `json:"brain_id"`
	KnowledgeID      string `json:"knowledge_id"`
	FileName         string `json:"file_name"` // storage path, "{brain_id}/{file_name}"
	FileOriginalName string `json:"file_original_name"`
	Integration      string `json:"integration,omitempty"`
	IntegrationLink  string `json:"integration_link,omitempty"`
	NotificationID   string `json:"notification_id,omitempty"`
}

type JobState string

const (
	JOB_STATE_RECEIVED       JobState = "Received"
	JOB_STATE_DISPATCHING    JobState = "Dispatching"
	JOB_STATE_AUDIO_PARSING  JobState = "AudioParsing"
	JOB_STATE_TEXT_PARSING   JobState = "TextParsing"
	JOB_STATE_VECTOR_WRITING JobState = "VectorWriting"
	JOB_STATE_LINKING        JobState = "Linking"
	JOB_STATE_COMPLETED      JobState = "Completed"
	JOB_STATE_FAILED         JobState = "Failed"
)

// JobReport summarizes one run of a processing job.
type JobReport struct {
	State     JobState `json:"state"`
	Reason    string   `json:"reason,omitempty"`
	Audio     bool     `json:"audio"`
	Chunks    int      `json:"chunks"`
	Links     int      `json:"links"`
	FileSha1  string   `json:"file_sha1"`
	Skipped   bool     `json:"skipped"`
	VectorIDs []string `json:"vector_ids,omitempty"`
}
