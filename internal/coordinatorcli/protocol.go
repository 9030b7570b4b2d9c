// Package coordinatorcli wires together every coordinator package into a
// running daemon and exposes it through an interactive command shell.
package coordinatorcli

import (
	json "github.com/nikkolasg/hexjson"

	"github.com/brollup/coordinator/cpe"
	"github.com/brollup/coordinator/crypto"
	"github.com/brollup/coordinator/musig2"
	"github.com/brollup/coordinator/noist/vse"
	"github.com/brollup/coordinator/session"
)

// setupWire is the wire-transmittable form of a vse.Setup: its signatory
// list plus every signatory's authenticated KeyMapRecord. Shared by
// RetrieveVSEDirectory's response and DeliverVSEDirectory's request.
type setupWire struct {
	Height  uint64             `json:"height"`
	Signers [][32]byte         `json:"signers"`
	Records []vse.KeyMapRecord `json:"records"`
}

func encodeSetupWire(height uint64, signers []crypto.Point, records []vse.KeyMapRecord) ([]byte, error) {
	w := setupWire{Height: height, Records: records}
	for _, s := range signers {
		w.Signers = append(w.Signers, s.XBytes())
	}
	return json.Marshal(w)
}

func decodeSetupWire(payload []byte) (setupWire, error) {
	var w setupWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return setupWire{}, err
	}
	return w, nil
}

func encodeKeyMapRecord(rec vse.KeyMapRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func decodeKeyMapRecord(payload []byte) (vse.KeyMapRecord, error) {
	var rec vse.KeyMapRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return vse.KeyMapRecord{}, err
	}
	return rec, nil
}

// nonceWire is the wire form of a musig2.PublicNonce.
type nonceWire struct {
	Hiding  [32]byte `json:"hiding"`
	Binding [32]byte `json:"binding"`
}

func encodeNonce(n musig2.PublicNonce) nonceWire {
	return nonceWire{Hiding: n.Hiding.XBytes(), Binding: n.Binding.XBytes()}
}

func (n nonceWire) decode() (musig2.PublicNonce, error) {
	hiding, err := crypto.NewPointFromXOnly(n.Hiding)
	if err != nil {
		return musig2.PublicNonce{}, err
	}
	binding, err := crypto.NewPointFromXOnly(n.Binding)
	if err != nil {
		return musig2.PublicNonce{}, err
	}
	return musig2.PublicNonce{Hiding: hiding, Binding: binding}, nil
}

// liftNonceWire is the wire form of session.LiftNonceCommit.
type liftNonceWire struct {
	LiftID      [32]byte  `json:"lift_id"`
	OperatorKey [32]byte  `json:"operator_key"`
	RemoteKey   [32]byte  `json:"remote_key"`
	HasOutpoint bool      `json:"has_outpoint"`
	Nonce       nonceWire `json:"nonce"`
}

// commitWire is the wire form of session.Commit: every crypto.Point and
// musig2.PublicNonce field replaced by its xonly/nonce encoding, since none
// of those types carry their own JSON marshaling.
type commitWire struct {
	SenderKey [32]byte `json:"sender_key"`

	Liftup, Recharge, Vanilla, Call, Reserved []byte

	PayloadAuthNonce        nonceWire       `json:"payload_auth_nonce"`
	VtxoProjectorNonce      *nonceWire      `json:"vtxo_projector_nonce,omitempty"`
	ConnectorProjectorNonce *nonceWire      `json:"connector_projector_nonce,omitempty"`
	ZKPContingentNonce      *nonceWire      `json:"zkp_contingent_nonce,omitempty"`
	LiftPrevtxoNonces       []liftNonceWire `json:"lift_prevtxo_nonces,omitempty"`
	ConnectorTxoNonces      []nonceWire     `json:"connector_txo_nonces,omitempty"`
}

func decodeCommit(payload []byte) (session.Commit, error) {
	var w commitWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return session.Commit{}, err
	}

	senderKey, err := crypto.NewPointFromXOnly(w.SenderKey)
	if err != nil {
		return session.Commit{}, err
	}
	payloadAuthNonce, err := w.PayloadAuthNonce.decode()
	if err != nil {
		return session.Commit{}, err
	}

	commit := session.Commit{
		MsgSender:        cpe.NewAccount(senderKey),
		Liftup:           w.Liftup,
		Recharge:         w.Recharge,
		Vanilla:          w.Vanilla,
		Call:             w.Call,
		Reserved:         w.Reserved,
		PayloadAuthNonce: payloadAuthNonce,
	}

	if w.VtxoProjectorNonce != nil {
		n, err := w.VtxoProjectorNonce.decode()
		if err != nil {
			return session.Commit{}, err
		}
		commit.VtxoProjectorNonce = &n
	}
	if w.ConnectorProjectorNonce != nil {
		n, err := w.ConnectorProjectorNonce.decode()
		if err != nil {
			return session.Commit{}, err
		}
		commit.ConnectorProjectorNonce = &n
	}
	if w.ZKPContingentNonce != nil {
		n, err := w.ZKPContingentNonce.decode()
		if err != nil {
			return session.Commit{}, err
		}
		commit.ZKPContingentNonce = &n
	}
	for _, lw := range w.LiftPrevtxoNonces {
		operatorKey, err := crypto.NewPointFromXOnly(lw.OperatorKey)
		if err != nil {
			return session.Commit{}, err
		}
		remoteKey, err := crypto.NewPointFromXOnly(lw.RemoteKey)
		if err != nil {
			return session.Commit{}, err
		}
		nonce, err := lw.Nonce.decode()
		if err != nil {
			return session.Commit{}, err
		}
		commit.LiftPrevtxoNonces = append(commit.LiftPrevtxoNonces, session.LiftNonceCommit{
			LiftID:      lw.LiftID,
			OperatorKey: operatorKey,
			RemoteKey:   remoteKey,
			HasOutpoint: lw.HasOutpoint,
			Nonce:       nonce,
		})
	}
	for _, nw := range w.ConnectorTxoNonces {
		n, err := nw.decode()
		if err != nil {
			return session.Commit{}, err
		}
		commit.ConnectorTxoNonces = append(commit.ConnectorTxoNonces, n)
	}

	return commit, nil
}

// scalarWire is a 32-byte big-endian scalar encoding.
type scalarWire = [32]byte

func encodeScalar(s crypto.Scalar) scalarWire { return s.Bytes() }

func decodeScalar(b scalarWire) (crypto.Scalar, error) { return crypto.NewScalar(b) }

// liftSigWire is the wire form of session.LiftPartialSig.
type liftSigWire struct {
	LiftID [32]byte  `json:"lift_id"`
	Sig    scalarWire `json:"sig"`
}

// upholdWire is the wire form of session.Uphold.
type upholdWire struct {
	SenderKey [32]byte `json:"sender_key"`

	PayloadAuthSig        scalarWire   `json:"payload_auth_sig"`
	VtxoProjectorSig      *scalarWire  `json:"vtxo_projector_sig,omitempty"`
	ConnectorProjectorSig *scalarWire  `json:"connector_projector_sig,omitempty"`
	ZKPContingentSig      *scalarWire  `json:"zkp_contingent_sig,omitempty"`
	LiftPrevtxoSigs       []liftSigWire `json:"lift_prevtxo_sigs,omitempty"`
	ConnectorTxoSigs      []scalarWire `json:"connector_txo_sigs,omitempty"`
}

func decodeUphold(payload []byte) (session.Uphold, error) {
	var w upholdWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return session.Uphold{}, err
	}

	senderKey, err := crypto.NewPointFromXOnly(w.SenderKey)
	if err != nil {
		return session.Uphold{}, err
	}
	payloadAuthSig, err := decodeScalar(w.PayloadAuthSig)
	if err != nil {
		return session.Uphold{}, err
	}

	uphold := session.Uphold{
		MsgSender:      cpe.NewAccount(senderKey),
		PayloadAuthSig: payloadAuthSig,
	}

	if w.VtxoProjectorSig != nil {
		s, err := decodeScalar(*w.VtxoProjectorSig)
		if err != nil {
			return session.Uphold{}, err
		}
		uphold.VtxoProjectorSig = &s
	}
	if w.ConnectorProjectorSig != nil {
		s, err := decodeScalar(*w.ConnectorProjectorSig)
		if err != nil {
			return session.Uphold{}, err
		}
		uphold.ConnectorProjectorSig = &s
	}
	if w.ZKPContingentSig != nil {
		s, err := decodeScalar(*w.ZKPContingentSig)
		if err != nil {
			return session.Uphold{}, err
		}
		uphold.ZKPContingentSig = &s
	}
	for _, lw := range w.LiftPrevtxoSigs {
		s, err := decodeScalar(lw.Sig)
		if err != nil {
			return session.Uphold{}, err
		}
		uphold.LiftPrevtxoSigs = append(uphold.LiftPrevtxoSigs, session.LiftPartialSig{LiftID: lw.LiftID, Sig: s})
	}
	for _, sw := range w.ConnectorTxoSigs {
		s, err := decodeScalar(sw)
		if err != nil {
			return session.Uphold{}, err
		}
		uphold.ConnectorTxoSigs = append(uphold.ConnectorTxoSigs, s)
	}

	return uphold, nil
}
