package auditlog

import "time"

const (
	// BatchFlushThreshold is the number of entries that triggers an immediate flush.
	BatchFlushThreshold = 100

	// CleanupInterval is how often expired entries are deleted.
	CleanupInterval = 1 * time.Hour

	// tableName is the SQL table and MongoDB collection name
	tableName = "ask_logs"
)
