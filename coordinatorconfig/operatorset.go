package coordinatorconfig

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/brollup/coordinator/crypto"
)

// ErrInvalidOperatorKey is returned when an operator set entry does not
// decode to a valid on-curve xonly key.
var ErrInvalidOperatorKey = errors.New("coordinatorconfig: invalid operator key")

// OperatorSet is the fixed list of operator keys the coordinator runs NOIST
// and MuSig2 sessions with, plus the signing threshold.
type OperatorSet struct {
	Operators []crypto.Point
	Threshold int
}

// operatorSetTOML is OperatorSet's on-disk form: keys as hex strings, since
// crypto.Point has no native TOML encoding.
type operatorSetTOML struct {
	Operators []string `toml:"operators"`
	Threshold int      `toml:"threshold"`
}

// TOML returns o's TOML-serializable form.
func (o *OperatorSet) TOML() operatorSetTOML {
	t := operatorSetTOML{Threshold: o.Threshold}
	for _, op := range o.Operators {
		xb := op.XBytes()
		t.Operators = append(t.Operators, hex.EncodeToString(xb[:]))
	}
	return t
}

// FromTOML populates o from its TOML form.
func (o *OperatorSet) FromTOML(t operatorSetTOML) error {
	o.Threshold = t.Threshold
	o.Operators = make([]crypto.Point, 0, len(t.Operators))
	for _, s := range t.Operators {
		raw, err := hex.DecodeString(s)
		if err != nil || len(raw) != 32 {
			return ErrInvalidOperatorKey
		}
		var xb [32]byte
		copy(xb[:], raw)
		p, err := crypto.NewPointFromXOnly(xb)
		if err != nil {
			return ErrInvalidOperatorKey
		}
		o.Operators = append(o.Operators, p)
	}
	return nil
}

// SaveOperatorSet writes o to path as TOML.
func SaveOperatorSet(path string, o *OperatorSet) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(o.TOML()); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0640)
}

// LoadOperatorSet reads an OperatorSet from path.
func LoadOperatorSet(path string) (*OperatorSet, error) {
	var t operatorSetTOML
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, err
	}
	o := &OperatorSet{}
	if err := o.FromTOML(t); err != nil {
		return nil, err
	}
	return o, nil
}
