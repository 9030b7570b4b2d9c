package vm

// executeEqualVerify pops two items and fails unless their raw bytes match.
func executeEqualVerify(h *StackHolder) error {
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

	if string(item1.Bytes()) != string(item2.Bytes()) {
		return ErrMandatoryEqualVerify
	}

	return h.IncrementOps(OpEqualVerifyOps)
}
