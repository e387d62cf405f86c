package types

import (
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

type KnowledgeStatus string

const (
	KNOWLEDGE_STATUS_UPLOADED   KnowledgeStatus = "UPLOADED"
	KNOWLEDGE_STATUS_PROCESSING KnowledgeStatus = "PROCESSING"
	KNOWLEDGE_STATUS_ERROR      KnowledgeStatus = "ERROR"
)

func (s KnowledgeStatus) String() string {
	return string(s)
}

// Knowledge describes one file ingested into a brain.
type Knowledge struct {
	ID         string          `json:"id" db:"id"`
	BrainID    string          `json:"brain_id" db:"brain_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	FileName   string          `json:"file_name" db:"file_name"`
	MimeType   string          `json:"mime_type" db:"mime_type"`       // lower-cased extension, e.g. ".pdf"
	Source     string          `json:"source" db:"source"`             // integration name
	SourceLink string          `json:"source_link" db:"source_link"`   // integration link
	FileSize   int64           `json:"file_size" db:"file_size"`       // bytes
	FileSha1   string          `json:"file_sha1" db:"file_sha1"`       // set by the worker
	Status     KnowledgeStatus `json:"status" db:"status"`
	CreatedAt  int64           `json:"created_at" db:"created_at"`
	UpdatedAt  int64           `json:"updated_at" db:"updated_at"`
}

// 与 ingest_knowledge.file_name / mime_type 列宽一致
const (
	MAX_FILE_NAME_LENGTH      = 512
	MAX_FILE_EXTENSION_LENGTH = 32
)

// FileExtension returns the lower-cased extension of name including the dot,
// or an empty string when name has none.
func FileExtension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// GenBrainFilePath is the storage key of a file uploaded to a brain.
func GenBrainFilePath(brainID, fileName string) string {
	return brainID + "/" + fileName
}

type GetKnowledgeOptions struct {
	ID       string
	IDs      []string
	BrainID  string
	UserID   string
	Status   KnowledgeStatus
	FileName string
}

func (opts GetKnowledgeOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	} else if len(opts.IDs) > 0 {
		*query = query.Where(sq.Eq{"id": opts.IDs})
	}
	if opts.BrainID != "" {
		*query = query.Where(sq.Eq{"brain_id": opts.BrainID})
	}
	if opts.UserID != "" {
		*query = query.Where(sq.Eq{"user_id": opts.UserID})
	}
	if opts.Status != "" {
		*query = query.Where(sq.Eq{"status": opts.Status})
	}
	if opts.FileName != "" {
		*query = query.Where(sq.Eq{"file_name": opts.FileName})
	}
}
