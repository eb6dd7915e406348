package bsc

// BEP20Abi covers the token methods the settlement path uses. BEP-20 shares
// the ERC-20 method signatures, so the standard fragment is enough.
const BEP20Abi = `[
	{
		"constant": false,
		"inputs": [
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "symbol",
		"outputs": [{"name": "", "type": "string"}],
		"type": "function"
	}
]`

type bep20Method string

const (
	methodTransfer  bep20Method = "transfer"
	methodBalanceOf bep20Method = "balanceOf"
)

func (m bep20Method) String() string {
	return string(m)
}
