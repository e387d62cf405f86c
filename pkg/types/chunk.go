package types

// Metadata keys attached to every parsed chunk.
const (
	CHUNK_META_FILE_NAME          = "file_name"
	CHUNK_META_ORIGINAL_FILE_NAME = "original_file_name"
	CHUNK_META_FILE_SHA1          = "file_sha1"
	CHUNK_META_BRAIN_ID           = "brain_id"
	CHUNK_META_KNOWLEDGE_ID       = "knowledge_id"
	CHUNK_META_INTEGRATION        = "integration"
	CHUNK_META_INTEGRATION_LINK   = "integration_link"
	CHUNK_META_CHUNK_INDEX        = "chunk_index"
	CHUNK_META_CHUNK_SIZE         = "chunk_size"
	CHUNK_META_TOKENS             = "tokens"
	CHUNK_META_LANGUAGE           = "language"
)

type ParsedChunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}
