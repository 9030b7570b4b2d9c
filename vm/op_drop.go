package vm

// executeDrop pops and discards the top item of the main stack.
func executeDrop(h *StackHolder) error {
	if !h.ActiveExecution() {
		return nil
	}
	if err := h.IncrementOps(OpDropOps); err != nil {
		return err
	}
	_, err := h.Pop()
	return err
}
