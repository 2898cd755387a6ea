package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyOrder          = errors.New("order has no line items")
	ErrOrderTypeMismatch   = errors.New("order type does not match the cart")
	ErrInvalidCustomer     = errors.New("invalid customer")
	ErrInvalidEmployee     = errors.New("invalid employee")
	ErrStockChanged        = errors.New("stock changed since the item was added")
	ErrPersistence         = errors.New("failed to persist order")
	ErrStockUpdateFailed   = errors.New("failed to update stock")
	ErrLoyaltyUpdateFailed = errors.New("failed to credit loyalty points")

	ErrSessionNotFound = errors.New("order session not found")
	ErrSessionBusy     = errors.New("order session is committing")
)

// Stage этап фиксации, на котором произошла ошибка
type Stage string

const (
	// StageValidation ничего не записано
	StageValidation Stage = "validation"
	// StageCommit транзакция откатилась
	StageCommit Stage = "commit"
)

// CommitError оборачивает любую ошибку CommitOrder
type CommitError struct {
	Stage Stage
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit order (%s): %v", e.Stage, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// RolledBack true, если запись уже начиналась и была отменена
func (e *CommitError) RolledBack() bool { return e.Stage == StageCommit }
