package domain

// Keys of the system_stats key/value table shared with the web front-end.
const (
	StateScanRequest = "scan_request"
	StateLastLaunch  = "last_launch"
)

// Values of the scan_request flag. The front-end writes "pending"; the
// scheduler moves it to "processing" and deletes it once the cycle is done.
const (
	ScanRequestPending    = "pending"
	ScanRequestProcessing = "processing"
)

// Severity levels written to the logs table. The vocabulary matches what the
// front-end expects to render.
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
	LevelSuccess = "SUCCESS"
	LevelSystem  = "SYSTEM"
)

// LogEntry is one row of the append-only logs table.
type LogEntry struct {
	ID        int64  `db:"id"`
	Message   string `db:"message"`
	Level     string `db:"level"`
	CreatedAt string `db:"created_at"`
}
