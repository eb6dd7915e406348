package bsc

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/brinegold/jarvis-settlement/internal/config"
	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
	"github.com/brinegold/jarvis-settlement/pkg/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BEP20Manager signs and submits token transfers from the custody wallet
// against a BSC node. All sends originate from the single custody key; the
// manager never signs with any other key.
type BEP20Manager struct {
	client        *ethclient.Client
	chainID       *big.Int
	privateKey    *ecdsa.PrivateKey
	custodyAddr   common.Address
	tokenContract common.Address
	feeWallet     string
	decimals      int
	parsedABI     abi.ABI
	timeout       time.Duration
}

// NewBEP20Manager dials the configured BSC node and prepares the custody
// signer. The custody key must already have passed the security validator.
func NewBEP20Manager(cfg *config.Config) (*BEP20Manager, error) {
	log := logger.GetLogger()

	client, err := ethclient.Dial(cfg.Blockchain.BSC.RpcURL)
	if err != nil {
		log.WithError(err).Error("Failed to connect to BSC RPC")
		return nil, errors.WithStack(err)
	}

	contract, err := abi.JSON(strings.NewReader(BEP20Abi))
	if err != nil {
		log.WithError(err).Error("Failed to parse token ABI")
		return nil, errors.WithStack(err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Wallet.CustodyPrivateKey, "0x"))
	if err != nil {
		log.WithError(err).Error("Invalid custody private key")
		return nil, errors.WithStack(err)
	}

	timeout := cfg.Settlement.ChainTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &BEP20Manager{
		client:        client,
		chainID:       big.NewInt(cfg.Blockchain.BSC.ChainID),
		privateKey:    privateKey,
		custodyAddr:   crypto.PubkeyToAddress(privateKey.PublicKey),
		tokenContract: common.HexToAddress(cfg.Blockchain.BSC.TokenContract),
		feeWallet:     cfg.Wallet.FeeWallet,
		decimals:      cfg.Blockchain.BSC.TokenDecimals,
		parsedABI:     contract,
		timeout:       timeout,
	}, nil
}

// Client returns the underlying eth client
func (m *BEP20Manager) Client() *ethclient.Client {
	return m.client
}

// CustodyAddress returns the address controlled by the custody key
func (m *BEP20Manager) CustodyAddress() string {
	return strings.ToLower(m.custodyAddr.Hex())
}

// Decimals returns the decimal places of the settlement token
func (m *BEP20Manager) Decimals() int {
	return m.decimals
}

// ProcessWithdrawal transfers amount of the token to destination and returns
// the transaction hash once the node reports the transaction as accepted.
func (m *BEP20Manager) ProcessWithdrawal(ctx context.Context, destination string, amount decimal.Decimal) (string, error) {
	log := logger.GetLogger().WithFields(map[string]interface{}{
		"destination": destination,
		"amount":      amount.String(),
		"contract":    m.tokenContract.Hex(),
	})

	units := TokenUnits(amount, m.decimals)
	if units.Sign() <= 0 {
		return "", &ChainSubmissionError{Op: "amount conversion", Err: fmt.Errorf("amount %s converts to zero units", amount.String())}
	}

	txHash, err := m.sendTokenTransfer(ctx, common.HexToAddress(destination), units)
	if err != nil {
		log.WithError(err).Error("Token transfer failed")
		return "", err
	}

	log.WithField("txHash", txHash).Info("Token transfer submitted")
	return txHash, nil
}

// ProcessWithdrawalWithFee performs the split settlement: gross minus fee to
// the destination, fee to the configured fee wallet. Both legs are attempted
// in order; a fee-leg failure after a successful user leg is surfaced as
// PartialTransferError so the caller does not refund funds already sent.
func (m *BEP20Manager) ProcessWithdrawalWithFee(ctx context.Context, destination string, gross, fee decimal.Decimal) (*entities.TransferResult, error) {
	log := logger.GetLogger().WithFields(map[string]interface{}{
		"destination": destination,
		"gross":       gross.String(),
		"fee":         fee.String(),
	})

	if m.feeWallet == "" {
		return nil, &ChainSubmissionError{Op: "fee transfer", Err: fmt.Errorf("fee wallet is not configured")}
	}

	net := gross.Sub(fee)
	userTxHash, err := m.ProcessWithdrawal(ctx, destination, net)
	if err != nil {
		return nil, err
	}

	feeUnits := TokenUnits(fee, m.decimals)
	if feeUnits.Sign() <= 0 {
		// Fee truncates to nothing on-chain; the user leg already covers
		// the settlement.
		return &entities.TransferResult{TxHash: userTxHash}, nil
	}

	feeTxHash, err := m.sendTokenTransfer(ctx, common.HexToAddress(m.feeWallet), feeUnits)
	if err != nil {
		log.WithError(err).WithField("userTxHash", userTxHash).Error("Fee transfer failed after user transfer succeeded")
		return &entities.TransferResult{TxHash: userTxHash},
			&PartialTransferError{UserTxHash: userTxHash, Err: err}
	}

	log.WithFields(map[string]interface{}{
		"userTxHash": userTxHash,
		"feeTxHash":  feeTxHash,
	}).Info("Split settlement completed")

	return &entities.TransferResult{TxHash: userTxHash, FeeTxHash: feeTxHash}, nil
}

// TokenBalanceOf returns the token balance of an address as a decimal amount
func (m *BEP20Manager) TokenBalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	log := logger.GetLogger().WithFields(map[string]interface{}{
		"contract": m.tokenContract.Hex(),
		"address":  address,
	})

	data, err := m.packMethod(methodBalanceOf, common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, err
	}

	raw, err := m.client.CallContract(ctx, ethereum.CallMsg{
		To:   &m.tokenContract,
		Data: data,
	}, nil)
	if err != nil {
		log.WithError(err).Error("balanceOf call failed")
		return decimal.Zero, &ChainSubmissionError{Op: "balanceOf", Err: err}
	}

	outputs, err := m.parsedABI.Methods[methodBalanceOf.String()].Outputs.Unpack(raw)
	if err != nil {
		log.WithError(err).Error("balanceOf unpack failed")
		return decimal.Zero, &ChainSubmissionError{Op: "balanceOf unpack", Err: err}
	}
	units, ok := outputs[0].(*big.Int)
	if !ok {
		return decimal.Zero, &ChainSubmissionError{Op: "balanceOf unpack", Err: fmt.Errorf("unexpected output type")}
	}

	return FromTokenUnits(units, m.decimals), nil
}

// BNBBalanceOf returns the native balance of an address in wei
func (m *BEP20Manager) BNBBalanceOf(ctx context.Context, address string) (*big.Int, error) {
	balance, err := m.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, &ChainSubmissionError{Op: "balance query", Err: err}
	}
	return balance, nil
}

func (m *BEP20Manager) packMethod(method bep20Method, args ...interface{}) ([]byte, error) {
	abiMethod, ok := m.parsedABI.Methods[method.String()]
	if !ok {
		return nil, &ChainSubmissionError{Op: "abi pack", Err: fmt.Errorf("method %s not found in ABI", method)}
	}
	packed, err := abiMethod.Inputs.Pack(args...)
	if err != nil {
		return nil, &ChainSubmissionError{Op: "abi pack", Err: err}
	}
	return append(abiMethod.ID, packed...), nil
}

// sendTokenTransfer signs and submits one token transfer from the custody
// wallet, then polls until the node no longer reports the transaction as
// pending or the context deadline hits.
func (m *BEP20Manager) sendTokenTransfer(ctx context.Context, to common.Address, units *big.Int) (string, error) {
	log := logger.GetLogger().WithFields(map[string]interface{}{
		"from":  m.custodyAddr.Hex(),
		"to":    to.Hex(),
		"units": units.String(),
	})

	data, err := m.packMethod(methodTransfer, to, units)
	if err != nil {
		return "", err
	}

	nonce, err := m.client.PendingNonceAt(ctx, m.custodyAddr)
	if err != nil {
		log.WithError(err).Error("Failed to get nonce")
		return "", &ChainSubmissionError{Op: "nonce", Err: err}
	}

	gasPrice, err := m.client.SuggestGasPrice(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to suggest gas price")
		return "", &ChainSubmissionError{Op: "gas price", Err: err}
	}

	gasLimit, err := m.client.EstimateGas(ctx, ethereum.CallMsg{
		From: m.custodyAddr,
		To:   &m.tokenContract,
		Data: data,
	})
	if err != nil {
		log.WithError(err).Error("Failed to estimate gas")
		return "", &ChainSubmissionError{Op: "gas estimate", Err: err}
	}

	tx := types.NewTransaction(nonce, m.tokenContract, big.NewInt(0), gasLimit, gasPrice, data)
	signer := types.LatestSignerForChainID(m.chainID)
	signedTx, err := types.SignTx(tx, signer, m.privateKey)
	if err != nil {
		log.WithError(err).Error("Failed to sign transaction")
		return "", &ChainSubmissionError{Op: "sign", Err: err}
	}

	log.WithFields(map[string]interface{}{
		"nonce":    nonce,
		"gasLimit": gasLimit,
		"gasPrice": gasPrice.String(),
		"txHash":   signedTx.Hash().Hex(),
	}).Info("Sending transaction")

	if err := m.client.SendTransaction(ctx, signedTx); err != nil {
		log.WithError(err).Error("Failed to send transaction")
		return "", &ChainSubmissionError{Op: "send", Err: err}
	}

	txHash := signedTx.Hash().Hex()
	if err := m.waitAccepted(ctx, signedTx.Hash()); err != nil {
		return txHash, err
	}

	log.WithField("txHash", txHash).Info("Transaction accepted")
	return txHash, nil
}

func (m *BEP20Manager) waitAccepted(ctx context.Context, txHash common.Hash) error {
	timeout := m.timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		_, isPending, err := m.client.TransactionByHash(ctx, txHash)
		if err == nil && !isPending {
			return nil
		}

		if time.Now().After(deadline) {
			return &SubmissionTimeoutError{TxHash: txHash.Hex()}
		}

		select {
		case <-ctx.Done():
			return &SubmissionTimeoutError{TxHash: txHash.Hex()}
		case <-ticker.C:
		}
	}
}
