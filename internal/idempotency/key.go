package idempotency

// Decision describes what an attribution write must do.
type Decision string

const (
	DecisionStore   Decision = "store"
	DecisionReplace Decision = "replace"
	DecisionSkip    Decision = "skip"
)

// Identifier returns the attribution identifier "{code}-{deviceID}".
func Identifier(code, deviceID string) string {
	return code + "-" + deviceID
}

// Decide compares the candidate identifier with the currently persisted one.
// Equal values (byte-for-byte) are skipped so that the stored timestamp,
// notifications and enrichment stay untouched.
func Decide(current, candidate string) Decision {
	switch {
	case current == candidate:
		return DecisionSkip
	case current == "":
		return DecisionStore
	default:
		return DecisionReplace
	}
}

// Writes reports whether the decision results in a persisted write.
func (d Decision) Writes() bool { return d != DecisionSkip }
