package registry

import "errors"

// Account registry errors.
var (
	ErrAccountKeyOddParity     = errors.New("registry: account key must have even parity")
	ErrAccountAlreadyRegistered = errors.New("registry: account key is already registered")
	ErrAccountRankNotFound      = errors.New("registry: no account at the given rank")
)

// Contract registry errors.
var (
	ErrContractAlreadyRegistered = errors.New("registry: contract id is already registered")
	ErrContractIndexNotFound     = errors.New("registry: no contract at the given registry index")
)
