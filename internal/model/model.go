package model

// FileEntry identifies one file in a report.
type FileEntry struct {
	Name    string            `json:"name"`
	Size    int64             `json:"size"`
	Digests map[string]string `json:"digests,omitempty"`
}

// MatchEntry pairs an input file with the known file it resolved to.
type MatchEntry struct {
	File    FileEntry  `json:"file"`
	Verdict string     `json:"verdict"`
	Known   *FileEntry `json:"known,omitempty"`
}

// AuditCounters mirrors the reconciler counters.
type AuditCounters struct {
	Exact        uint64 `json:"exact"`
	Partial      uint64 `json:"partial"`
	Moved        uint64 `json:"moved"`
	Unused       uint64 `json:"unused"`
	Unknown      uint64 `json:"unknown"`
	Total        uint64 `json:"total"`
	SizeMismatch uint64 `json:"size_mismatch"`
}

// AuditReport is the document written by the audit command.
type AuditReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  int64         `json:"started_at"`
	FinishedAt int64         `json:"finished_at"`
	Algorithms []string      `json:"algorithms"`
	KnownFiles []string      `json:"known_files"`
	KnownCount int           `json:"known_count"`
	Passed     bool          `json:"passed"`
	Counters   AuditCounters `json:"counters"`
	Unmatched  []MatchEntry  `json:"unmatched,omitempty"`
	Unused     []FileEntry   `json:"unused,omitempty"`
	BytesRead  string        `json:"bytes_read"`
}

// MatchReport is the document written by the match command.
type MatchReport struct {
	RunID      string       `json:"run_id"`
	Negative   bool         `json:"negative"`
	Algorithms []string     `json:"algorithms"`
	KnownFiles []string     `json:"known_files"`
	Count      int          `json:"count"`
	Files      []MatchEntry `json:"files"`
}
