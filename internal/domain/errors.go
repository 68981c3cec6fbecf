package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidOperator   = errors.New("invalid search operator")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrTypeSelfParent    = errors.New("type cannot be its own super")
	ErrTypeCycle         = errors.New("type cannot have a sub type as super")
	ErrReadOnlyType      = errors.New("type is read only")
	ErrTypeInUse         = errors.New("type has sub types or linked entities")
)

// TxError is returned when a mutating sequence was rolled back. It matches
// ErrTransactionFailed and unwraps to the cause.
type TxError struct {
	Op    string
	Cause error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrTransactionFailed, e.Cause)
}

func (e *TxError) Is(target error) bool {
	return target == ErrTransactionFailed
}

func (e *TxError) Unwrap() error {
	return e.Cause
}
