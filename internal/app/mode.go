package app

// Mode is the primary operation of a hashing run.
type Mode int

const (
	ModeCompute Mode = iota
	ModeMatch
	ModeMatchNegative
	ModeAudit
)

func (m Mode) String() string {
	switch m {
	case ModeCompute:
		return "compute"
	case ModeMatch:
		return "match"
	case ModeMatchNegative:
		return "match-negative"
	case ModeAudit:
		return "audit"
	}
	return "unknown"
}

// NeedsKnown reports whether the mode requires known hashes to be loaded.
func (m Mode) NeedsKnown() bool {
	return m != ModeCompute
}
