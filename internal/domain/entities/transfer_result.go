package entities

// TransferResult carries the transaction hashes of a settled withdrawal.
// FeeTxHash is empty when no fee leg was sent.
type TransferResult struct {
	TxHash    string `json:"tx_hash"`
	FeeTxHash string `json:"fee_tx_hash,omitempty"`
}
