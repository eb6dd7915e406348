package bsc

import "fmt"

// ChainSubmissionError wraps a failure talking to the chain node: dial
// errors, nonce/gas failures, rejected submissions. The transfer did not
// land, so callers may safely refund.
type ChainSubmissionError struct {
	Op  string
	Err error
}

func (e *ChainSubmissionError) Error() string {
	return fmt.Sprintf("chain submission failed during %s: %v", e.Op, e.Err)
}

func (e *ChainSubmissionError) Unwrap() error {
	return e.Err
}

// SubmissionTimeoutError means the transaction was submitted but its
// acceptance was never observed before the deadline. The outcome is unknown:
// callers must NOT refund on this error, only reconcile.
type SubmissionTimeoutError struct {
	TxHash string
}

func (e *SubmissionTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s submitted but acceptance not observed before deadline", e.TxHash)
}

// PartialTransferError means the user leg landed and the fee leg failed.
// The user already received the net amount, so callers must record the
// user transaction and must not refund.
type PartialTransferError struct {
	UserTxHash string
	Err        error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("fee transfer failed after user transfer %s succeeded: %v", e.UserTxHash, e.Err)
}

func (e *PartialTransferError) Unwrap() error {
	return e.Err
}
