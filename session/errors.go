package session

import "errors"

var (
	ErrSessionNotOn          = errors.New("session: round is not accepting commitments")
	ErrSessionNotLocked      = errors.New("session: round is not locked")
	ErrSessionNotUpheld      = errors.New("session: round has not collected every partial signature")
	ErrSenderAlreadyCommitted = errors.New("session: message sender has already committed this round")
	ErrUnknownSender         = errors.New("session: message sender did not commit this round")
	ErrCovenantNotActive     = errors.New("session: covenant was not opened for this round")
	ErrNoncePickerFailed     = errors.New("session: failed to draw an operator nonce pair")
	ErrMusigContextMissing   = errors.New("session: covenant's MuSig2 context was never locked")

	// Commit validation.
	ErrCommitBlacklisted          = errors.New("session: message sender is currently blacklisted")
	ErrCommitInvalidLiftRemoteKey = errors.New("session: lift remote key must be the sender and differ from the operator key")
	ErrCommitInvalidLiftOperatorKey = errors.New("session: lift operator key does not resolve to a known directory")
	ErrCommitInvalidLiftOutpoint  = errors.New("session: lift prev-output is missing its outpoint")
	ErrPayloadAuthEmpty           = errors.New("session: round has no committing senders to build a payload-auth context for")

	// Uphold insertion.
	ErrUpholdMissingVtxoProjectorSig      = errors.New("session: uphold is missing its vtxo projector partial signature")
	ErrUpholdInvalidVtxoProjectorSig      = errors.New("session: uphold's vtxo projector partial signature is invalid")
	ErrUpholdMissingConnectorProjectorSig = errors.New("session: uphold is missing its connector projector partial signature")
	ErrUpholdInvalidConnectorProjectorSig = errors.New("session: uphold's connector projector partial signature is invalid")
	ErrUpholdMissingZKPContingentSig      = errors.New("session: uphold is missing its ZKP contingent partial signature")
	ErrUpholdInvalidZKPContingentSig      = errors.New("session: uphold's ZKP contingent partial signature is invalid")
	ErrUpholdInvalidPayloadAuthSig        = errors.New("session: uphold's payload-auth partial signature is invalid")
	ErrUpholdMissingLiftSig               = errors.New("session: uphold is missing a lift prev-output partial signature")
	ErrUpholdInvalidLiftSig               = errors.New("session: uphold's lift prev-output partial signature is invalid")
	ErrUpholdMissingConnectorSig          = errors.New("session: uphold is missing a connector partial signature")
	ErrUpholdInvalidConnectorSig          = errors.New("session: uphold's connector partial signature is invalid")
)
