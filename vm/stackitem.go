package vm

import "github.com/holiman/uint256"

// StackItem is a single element on the main or alt stack: an opaque byte
// string, interpreted as a big-endian 256-bit integer or a boolean only
// when an opcode specifically asks for that interpretation.
type StackItem struct {
	b []byte
}

// NewStackItem wraps b as a stack item, copying it defensively.
func NewStackItem(b []byte) StackItem {
	return StackItem{b: append([]byte{}, b...)}
}

// Bytes returns the item's raw bytes.
func (s StackItem) Bytes() []byte {
	return append([]byte{}, s.b...)
}

// IsTrue reports whether the item is script-true: any non-empty, non-all-zero
// byte string, matching the Script boolean convention.
func (s StackItem) IsTrue() bool {
	for _, b := range s.b {
		if b != 0 {
			return true
		}
	}
	return false
}

// ToUint interprets the item as a big-endian 256-bit unsigned integer. It
// fails if the item is longer than 32 bytes.
func (s StackItem) ToUint() (*uint256.Int, bool) {
	if len(s.b) > 32 {
		return nil, false
	}
	var padded [32]byte
	copy(padded[32-len(s.b):], s.b)
	return new(uint256.Int).SetBytes32(padded[:]), true
}

// StackItemFromUint encodes v as a minimal big-endian stack item, dropping
// leading zero bytes (the empty item represents zero).
func StackItemFromUint(v *uint256.Int) StackItem {
	b := v.Bytes()
	return NewStackItem(b)
}
