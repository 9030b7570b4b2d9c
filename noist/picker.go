package noist

import (
	"github.com/brollup/coordinator/crypto"
)

// Picker bridges a Manager to session.NoncePicker. The session package's
// per-covenant MuSig2 contexts each need one (groupKey, hiding, binding)
// tuple; this directory's pool only ever yields one aggregate nonce point
// per PickIndex call, so a pair is assembled from two independent draws.
type Picker struct {
	manager *Manager
}

// NewPicker wraps manager as a session.NoncePicker.
func NewPicker(manager *Manager) *Picker {
	return &Picker{manager: manager}
}

// PickNoncePair draws a hiding/binding pair from the active directory.
func (p *Picker) PickNoncePair() (groupKey, hiding, binding crypto.Point, err error) {
	dir, err := p.manager.ActiveDirectory()
	if err != nil {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, err
	}
	return pickFromDirectory(dir)
}

// PickNoncePairFor draws a hiding/binding pair from the directory whose
// group key is operatorKey, which need not be the active one — a lift may
// have been issued against an earlier NOIST directory.
func (p *Picker) PickNoncePairFor(operatorKey crypto.Point) (groupKey, hiding, binding crypto.Point, err error) {
	dir, err := p.manager.DirectoryByKey(operatorKey)
	if err != nil {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, err
	}
	return pickFromDirectory(dir)
}

func pickFromDirectory(dir *Directory) (groupKey, hiding, binding crypto.Point, err error) {
	groupKey, ok := dir.GroupKey()
	if !ok {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, ErrGroupKeyNotReady
	}

	_, hidingSession, err := dir.PickIndex()
	if err != nil {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, err
	}
	hiding, ok = hidingSession.AggregateConstant()
	if !ok {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, ErrNonceSessionNotFilled
	}

	_, bindingSession, err := dir.PickIndex()
	if err != nil {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, err
	}
	binding, ok = bindingSession.AggregateConstant()
	if !ok {
		return crypto.Point{}, crypto.Point{}, crypto.Point{}, ErrNonceSessionNotFilled
	}

	return groupKey, hiding, binding, nil
}
