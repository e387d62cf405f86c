package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "ingest_"

const (
	TABLE_KNOWLEDGE     = TableName("knowledge")
	TABLE_NOTIFICATION  = TableName("notification")
	TABLE_BRAIN         = TableName("brain")
	TABLE_BRAIN_USER    = TableName("brain_user")
	TABLE_USER_SETTINGS = TableName("user_settings")
	TABLE_VECTORS       = TableName("vectors")
	TABLE_BRAIN_VECTORS = TableName("brain_vectors")
	TABLE_ACCESS_TOKEN  = TableName("access_token")
)
