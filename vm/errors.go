package vm

import "errors"

var (
	ErrEmptyStack               = errors.New("vm: stack is empty")
	ErrStackItemTooLarge        = errors.New("vm: stack item exceeds maximum size")
	ErrPickIndexOutOfRange      = errors.New("vm: pick index out of range")
	ErrRemoveIndexOutOfRange    = errors.New("vm: remove index out of range")
	ErrInternalOpsBudgetExceeded = errors.New("vm: contract ops budget exceeded")
	ErrExternalOpsLimitExceeded  = errors.New("vm: shared external ops limit exceeded")
	ErrStackUintOverflow         = errors.New("vm: stack item does not fit in a 256-bit integer")
	ErrMandatoryEqualVerify      = errors.New("vm: OP_EQUALVERIFY: items are not equal")
	ErrMismatchedFlowEncounter   = errors.New("vm: OP_ELSE/OP_ENDIF without a matching OP_IF")
	ErrUnbalancedFlowEncounters  = errors.New("vm: execution ended with unresolved OP_IF/OP_ELSE")
	ErrMemoryLimitExceeded       = errors.New("vm: contract memory limit exceeded")
	ErrUnknownOpcode             = errors.New("vm: unknown opcode byte")
)
