package coordinatorconfig

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"

	"github.com/brollup/coordinator/crypto"
)

// DefaultIdentityFile is the coordinator's own long-term keypair, relative
// to the config folder.
const DefaultIdentityFile = "identity.key"

// ErrInvalidIdentityFile is returned when the identity file does not
// contain a single valid hex-encoded scalar.
var ErrInvalidIdentityFile = errors.New("coordinatorconfig: invalid identity file")

// Identity is the coordinator's own long-term signing key, used to
// authenticate its VSE key map and session traffic to every operator.
type Identity struct {
	Key crypto.Scalar
}

// GenerateIdentity draws a fresh random identity.
func GenerateIdentity() (Identity, error) {
	s, err := crypto.RandomScalar()
	if err != nil {
		return Identity{}, err
	}
	return Identity{Key: s}, nil
}

// SaveIdentity writes id to path as a single hex-encoded line. The file is
// created with owner-only permissions since it holds a private key.
func SaveIdentity(path string, id Identity) error {
	b := id.Key.Bytes()
	return os.WriteFile(path, []byte(hex.EncodeToString(b[:])+"\n"), 0600)
}

// LoadIdentity reads an Identity previously written by SaveIdentity.
func LoadIdentity(path string) (Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, err
	}
	line := strings.TrimSpace(string(raw))
	decoded, err := hex.DecodeString(line)
	if err != nil || len(decoded) != 32 {
		return Identity{}, ErrInvalidIdentityFile
	}
	var b [32]byte
	copy(b[:], decoded)
	s, err := crypto.NewScalar(b)
	if err != nil {
		return Identity{}, ErrInvalidIdentityFile
	}
	return Identity{Key: s}, nil
}
