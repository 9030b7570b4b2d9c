package vm

// executeIf pops the branch condition and opens a new, possibly nested,
// if/else encounter. It always charges its ops cost, even when an
// enclosing branch is inactive, so an attacker cannot use dead branches to
// dodge metering — but in that case the new encounter is marked
// FlowUncovered rather than evaluated.
func executeIf(h *StackHolder) error {
	if err := h.IncrementOps(OpIfOps); err != nil {
		return err
	}

	if !h.ActiveExecution() {
		h.PushFlowEncounter(NewIfNotifEncounter(FlowUncovered))
		return nil
	}

	item, err := h.Pop()
	if err != nil {
		return err
	}

	if item.IsTrue() {
		h.PushFlowEncounter(NewIfNotifEncounter(FlowActive))
	} else {
		h.PushFlowEncounter(NewIfNotifEncounter(FlowInactive))
	}
	return nil
}

// executeElse flips the innermost open branch: an encounter that was
// Uncovered stays Uncovered (its enclosing scope was never live), otherwise
// Active and Inactive swap.
func executeElse(h *StackHolder) error {
	if err := h.IncrementOps(OpElseOps); err != nil {
		return err
	}

	encounter, ok := h.PopFlowEncounter()
	if !ok {
		return ErrMismatchedFlowEncounter
	}

	switch encounter.Status() {
	case FlowActive:
		h.PushFlowEncounter(NewElseEncounter(FlowInactive))
	case FlowInactive:
		h.PushFlowEncounter(NewElseEncounter(FlowActive))
	default:
		h.PushFlowEncounter(NewElseEncounter(FlowUncovered))
	}
	return nil
}

// executeEndif closes the innermost open branch.
func executeEndif(h *StackHolder) error {
	if err := h.IncrementOps(OpEndifOps); err != nil {
		return err
	}
	if _, ok := h.PopFlowEncounter(); !ok {
		return ErrMismatchedFlowEncounter
	}
	return nil
}
