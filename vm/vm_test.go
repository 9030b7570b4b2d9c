package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newHolder(t *testing.T, budget uint32) (*StackHolder, *uint32, *uint32) {
	t.Helper()
	var internal, external uint32
	h, err := NewStackHolder([32]byte{}, [32]byte{}, budget, &internal, &external)
	require.NoError(t, err)
	return h, &internal, &external
}

func TestPushPopRoundTrip(t *testing.T) {
	h, _, _ := newHolder(t, 100)
	require.NoError(t, h.Push(NewStackItem([]byte{0xde, 0xad})))
	require.Equal(t, uint32(1), h.Stack().ItemsCount())

	item, err := h.Pop()
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, item.Bytes())

	_, err = h.Pop()
	require.ErrorIs(t, err, ErrEmptyStack)
}

func TestOpDropRemovesTopItem(t *testing.T) {
	h, _, _ := newHolder(t, 100)
	require.NoError(t, h.Push(NewStackItem([]byte{0x01})))
	require.NoError(t, h.Push(NewStackItem([]byte{0x02})))

	require.NoError(t, OpDrop.Execute(h))
	require.Equal(t, uint32(1), h.Stack().ItemsCount())
	last, err := h.Stack().LastItem()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, last.Bytes())
}

func TestOpEqualVerify(t *testing.T) {
	h, _, _ := newHolder(t, 100)
	require.NoError(t, h.Push(NewStackItem([]byte{0xaa})))
	require.NoError(t, h.Push(NewStackItem([]byte{0xaa})))
	require.NoError(t, OpEqualVerify.Execute(h))

	require.NoError(t, h.Push(NewStackItem([]byte{0xaa})))
	require.NoError(t, h.Push(NewStackItem([]byte{0xbb})))
	require.ErrorIs(t, OpEqualVerify.Execute(h), ErrMandatoryEqualVerify)
}

func TestOpMulMod(t *testing.T) {
	h, _, _ := newHolder(t, 100)
	require.NoError(t, h.Push(NewStackItem([]byte{0x05})))
	require.NoError(t, h.Push(NewStackItem([]byte{0x06})))
	require.NoError(t, OpMulMod.Execute(h))

	result, err := h.Pop()
	require.NoError(t, err)
	v, ok := result.ToUint()
	require.True(t, ok)
	require.Equal(t, uint64(30), v.Uint64())
}

func TestIfElseEndifBranching(t *testing.T) {
	h, _, _ := newHolder(t, 100)
	require.NoError(t, h.Push(NewStackItem([]byte{0x00})))
	require.NoError(t, OpIf.Execute(h))
	require.False(t, h.ActiveExecution())

	require.NoError(t, OpElse.Execute(h))
	require.True(t, h.ActiveExecution())

	require.NoError(t, OpEndif.Execute(h))
	require.Equal(t, 0, h.FlowEncountersLen())
}

func TestElseEndifWithoutIfFails(t *testing.T) {
	h, _, _ := newHolder(t, 100)
	require.ErrorIs(t, OpElse.Execute(h), ErrMismatchedFlowEncounter)
	require.ErrorIs(t, OpEndif.Execute(h), ErrMismatchedFlowEncounter)
}

func TestOpsBudgetEnforced(t *testing.T) {
	h, _, _ := newHolder(t, 0)
	require.NoError(t, h.Push(NewStackItem([]byte{0x01})))
	require.ErrorIs(t, h.IncrementOps(1), ErrInternalOpsBudgetExceeded)
}

func TestExternalOpsLimitSharedAcrossHolders(t *testing.T) {
	var internal1, internal2, external uint32
	external = OpsLimit + 1
	_, err := NewStackHolder([32]byte{}, [32]byte{}, 100, &internal1, &external)
	require.ErrorIs(t, err, ErrExternalOpsLimitExceeded)

	internal1 = 0
	external = 0
	h1, err := NewStackHolder([32]byte{}, [32]byte{}, 100, &internal1, &external)
	require.NoError(t, err)
	h2, err := NewStackHolder([32]byte{}, [32]byte{}, 100, &internal2, &external)
	require.NoError(t, err)

	require.NoError(t, h1.IncrementOps(5))
	require.Equal(t, uint32(5), h2.ExternalOpsCounter())
}

func TestDecodeOpcodeRejectsUnknown(t *testing.T) {
	_, err := DecodeOpcode(0xff)
	require.ErrorIs(t, err, ErrUnknownOpcode)

	op, err := DecodeOpcode(byte(OpDrop))
	require.NoError(t, err)
	require.Equal(t, OpDrop, op)
	require.Equal(t, []byte{0x75}, op.Encode())
}
