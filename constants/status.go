package constants

// DocumentStatus is the canonical status for rows in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusQueued    DocumentStatus = "QUEUED"    // accepted, waiting for a worker
	DocumentStatusRunning   DocumentStatus = "RUNNING"   // pages being recognised
	DocumentStatusExtracted DocumentStatus = "EXTRACTED" // fields extracted (gaps are reported, not fatal)
	DocumentStatusFailed    DocumentStatus = "FAILED"    // terminal failure (unreadable source, storage error)
)

var allStatuses = []DocumentStatus{
	DocumentStatusQueued,
	DocumentStatusRunning,
	DocumentStatusExtracted,
	DocumentStatusFailed,
}

// IsTerminal reports whether no further transitions are expected.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusExtracted || s == DocumentStatusFailed
}

func StatusesAsStrings() []string {
	out := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		out[i] = string(s)
	}
	return out
}
