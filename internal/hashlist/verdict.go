package hashlist

// Verdict is the outcome of searching a candidate in the hash list.
type Verdict int

const (
	NoMatch Verdict = iota
	Match
	PartialMatch
	FileSizeMismatch
	FileNameMismatch
)

func (v Verdict) String() string {
	switch v {
	case NoMatch:
		return "no match"
	case Match:
		return "complete match"
	case PartialMatch:
		return "partial match"
	case FileSizeMismatch:
		return "file size mismatch"
	case FileNameMismatch:
		return "file name mismatch"
	}
	return "unknown"
}

// Matched reports whether at least one digest hit a known record.
func (v Verdict) Matched() bool {
	return v != NoMatch
}
