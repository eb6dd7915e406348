package entities

import "testing"

func TestWithdrawalStatusIsTerminal(t *testing.T) {
	terminal := map[WithdrawalStatus]bool{
		WithdrawalStatusPending:    false,
		WithdrawalStatusProcessing: false,
		WithdrawalStatusCompleted:  true,
		WithdrawalStatusFailed:     true,
		WithdrawalStatusRejected:   true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}
