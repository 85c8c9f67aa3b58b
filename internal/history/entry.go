package history

import "time"

// Entry is one recorded script run.
type Entry struct {
	ID        int64
	RunID     string
	Script    string
	URL       string
	Status    string
	Headers   string // getResponseHeaders() output after the script ran
	Logs      string // newline-joined script logs
	Error     string
	Skipped   bool
	Duration  time.Duration
	Timestamp time.Time
}
