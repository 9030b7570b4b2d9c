package vm

import "github.com/holiman/uint256"

// executeAdd pops two items, interprets them as 256-bit integers, and
// pushes their sum. uint256.Int arithmetic wraps modulo 2^256 by
// construction, matching Script's fixed-width integer semantics.
func executeAdd(h *StackHolder) error {
	if !h.ActiveExecution() {
		return nil
	}

	item1, err := h.Pop()
	if err != nil {
		return err
	}
	item2, err := h.Pop()
	if err != nil {
		return err
	}

	v1, ok := item1.ToUint()
	if !ok {
		return ErrStackUintOverflow
	}
	v2, ok := item2.ToUint()
	if !ok {
		return ErrStackUintOverflow
	}

	result := new(uint256.Int).Add(v1, v2)

	if err := h.IncrementOps(OpAddOps); err != nil {
		return err
	}
	return h.Push(StackItemFromUint(result))
}

// executeMulMod pops two items and pushes their product, wrapped modulo
// 2^256 (StackUint::mulmod in the original).
func executeMulMod(h *StackHolder) error {
	if !h.ActiveExecution() {
		return nil
	}

	item1, err := h.Pop()
	if err != nil {
		return err
	}
	item2, err := h.Pop()
	if err != nil {
		return err
	}

	v1, ok := item1.ToUint()
	if !ok {
		return ErrStackUintOverflow
	}
	v2, ok := item2.ToUint()
	if !ok {
		return ErrStackUintOverflow
	}

	result := new(uint256.Int).Mul(v1, v2)

	if err := h.IncrementOps(OpMulModOps); err != nil {
		return err
	}
	return h.Push(StackItemFromUint(result))
}
