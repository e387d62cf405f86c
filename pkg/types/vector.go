package types

import (
	"encoding/json"

	"github.com/pgvector/pgvector-go"
)

type Vector struct {
	ID             string          `json:"id" db:"id"` // uuid
	KnowledgeID    string          `json:"knowledge_id" db:"knowledge_id"`
	BrainID        string          `json:"brain_id" db:"brain_id"`
	Content        string          `json:"content" db:"content"`
	Metadata       json.RawMessage `json:"metadata" db:"metadata"`
	Embedding      pgvector.Vector `json:"embedding" db:"embedding"`
	OriginalLength int             `json:"original_length" db:"original_length"`
	CreatedAt      int64           `json:"created_at" db:"created_at"`
}

// BrainVector links one stored vector to the fingerprint of its source file.
type BrainVector struct {
	VectorID  string `json:"vector_id" db:"vector_id"`
	FileSha1  string `json:"file_sha1" db:"file_sha1"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}
