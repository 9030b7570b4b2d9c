package vm

// executePushConst pushes the single-byte encoding of a small constant
// (OP_2, OP_4, OP_12, ...) onto the main stack.
func executePushConst(h *StackHolder, value byte, ops uint32) error {
	if !h.ActiveExecution() {
		return nil
	}

	if err := h.IncrementOps(ops); err != nil {
		return err
	}
	return h.Push(NewStackItem([]byte{value}))
}
