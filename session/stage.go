// Package session drives one coordinator rollup round end to end: opening
// a window for commitments, locking it into a fixed participant set with
// aggregated MuSig2 signing contexts, collecting partial signatures, and
// finalizing — or resetting back to Off on any failure.
package session

// Stage is the coordinator session's lifecycle state.
type Stage int

const (
	// Off is idle: no round is in progress.
	Off Stage = iota
	// On is open: new commitments are accepted from message senders.
	On
	// Locked has a fixed participant set and derived MuSig2 signing
	// contexts; no further commitments are accepted.
	Locked
	// Upheld has collected every participant's partial MuSig2 signatures.
	Upheld
	// Finalized has produced and distributed the round's final signatures.
	Finalized
)

// String renders stage for logging.
func (s Stage) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	case Locked:
		return "locked"
	case Upheld:
		return "upheld"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}
