package types

import "errors"

// ErrObjectAlreadyExists is returned by storage drivers when a write targets an
// existing key.
var ErrObjectAlreadyExists = errors.New("object already exists")

type ObjectInfo struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"last_modified"`
}

type GetObjectResult struct {
	File     []byte
	FileType string
}
