package repositories

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyProcessed is returned by guarded status transitions when the
	// request already left the expected state. Retried admin actions and
	// concurrent approvals end up here instead of double-spending.
	ErrAlreadyProcessed = errors.New("withdrawal already processed")

	// ErrInsufficientBalance is returned when a debit would push the user
	// balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
)
