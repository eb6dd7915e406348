package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/brinegold/jarvis-settlement/internal/blockchain/bsc"
	"github.com/brinegold/jarvis-settlement/internal/config"
	"github.com/brinegold/jarvis-settlement/internal/domain/entities"
	domainRepos "github.com/brinegold/jarvis-settlement/internal/domain/repositories"
	"github.com/brinegold/jarvis-settlement/internal/notification"
)

// Well-known hardhat development keypair; safe to embed in tests.
const (
	testCustodyKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAdminWallet = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	testFeeWallet   = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
)

type fakeBalances struct {
	mu       sync.Mutex
	balances map[int]decimal.Decimal
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{balances: map[int]decimal.Decimal{}}
}

func (f *fakeBalances) set(userID int, amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] = amount
}

func (f *fakeBalances) get(userID int) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID]
}

func (f *fakeBalances) GetByUserID(_ context.Context, userID int) (*entities.UserBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[userID]
	if !ok {
		return nil, domainRepos.ErrNotFound
	}
	return &entities.UserBalance{UserID: userID, Balance: balance}, nil
}

func (f *fakeBalances) Credit(_ context.Context, userID int, amount decimal.Decimal, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] = f.balances[userID].Add(amount)
	return nil
}

func (f *fakeBalances) Debit(_ context.Context, userID int, amount decimal.Decimal, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID].LessThan(amount) {
		return domainRepos.ErrInsufficientBalance
	}
	f.balances[userID] = f.balances[userID].Sub(amount)
	return nil
}

// fakeWithdrawals mirrors the compare-and-set semantics of the real
// repository, including the refund that MarkRejected performs.
type fakeWithdrawals struct {
	mu       sync.Mutex
	nextID   int
	requests map[int]*entities.WithdrawalRequest
	balances *fakeBalances
}

func newFakeWithdrawals(balances *fakeBalances) *fakeWithdrawals {
	return &fakeWithdrawals{nextID: 1, requests: map[int]*entities.WithdrawalRequest{}, balances: balances}
}

func (f *fakeWithdrawals) Create(_ context.Context, request *entities.WithdrawalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request.ID = f.nextID
	f.nextID++
	if request.Status == "" {
		request.Status = entities.WithdrawalStatusPending
	}
	request.CreateAt = time.Now()
	clone := *request
	f.requests[request.ID] = &clone
	return nil
}

func (f *fakeWithdrawals) GetByID(_ context.Context, id int) (*entities.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, domainRepos.ErrNotFound
	}
	clone := *request
	return &clone, nil
}

func (f *fakeWithdrawals) GetByUserID(_ context.Context, userID int, limit, offset int) ([]entities.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.WithdrawalRequest
	for _, request := range f.requests {
		if request.UserID == userID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (f *fakeWithdrawals) HasPending(_ context.Context, userID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, request := range f.requests {
		if request.UserID == userID && request.Status == entities.WithdrawalStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWithdrawals) MarkProcessing(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != entities.WithdrawalStatusPending {
		return domainRepos.ErrAlreadyProcessed
	}
	request.Status = entities.WithdrawalStatusProcessing
	return nil
}

func (f *fakeWithdrawals) MarkCompleted(_ context.Context, id int, result *entities.TransferResult, fee, net decimal.Decimal, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != entities.WithdrawalStatusProcessing {
		return domainRepos.ErrAlreadyProcessed
	}
	request.Status = entities.WithdrawalStatusCompleted
	request.TxHash = result.TxHash
	request.FeeTxHash = result.FeeTxHash
	request.Fee = fee
	request.NetAmount = net
	request.AdminNote = note
	return nil
}

func (f *fakeWithdrawals) MarkRejected(ctx context.Context, id int, from entities.WithdrawalStatus, reason string) error {
	f.mu.Lock()
	request, ok := f.requests[id]
	if !ok || request.Status != from {
		f.mu.Unlock()
		return domainRepos.ErrAlreadyProcessed
	}
	request.Status = entities.WithdrawalStatusRejected
	request.AdminNote = reason
	userID, amount := request.UserID, request.Amount
	f.mu.Unlock()

	return f.balances.Credit(ctx, userID, amount, "withdrawal_rejected")
}

func (f *fakeWithdrawals) ListProcessingOlderThan(_ context.Context, age time.Duration) ([]entities.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-age)
	var out []entities.WithdrawalRequest
	for _, request := range f.requests {
		if request.Status == entities.WithdrawalStatusProcessing && request.CreateAt.Before(cutoff) {
			out = append(out, *request)
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	err       error
	calls     int
	lastGross decimal.Decimal
	lastFee   decimal.Decimal
	lastTo    string
}

func (f *fakeGateway) CustodyAddress() string { return testAdminWallet }

func (f *fakeGateway) ProcessWithdrawal(_ context.Context, destination string, amount decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastTo = destination
	f.lastGross = amount
	if f.err != nil {
		return "", f.err
	}
	return "0xsingletx", nil
}

func (f *fakeGateway) ProcessWithdrawalWithFee(_ context.Context, destination string, gross, fee decimal.Decimal) (*entities.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastTo = destination
	f.lastGross = gross
	f.lastFee = fee
	result := &entities.TransferResult{TxHash: "0xusertx", FeeTxHash: "0xfeetx"}
	if f.err != nil {
		var partial *bsc.PartialTransferError
		if errors.As(f.err, &partial) {
			result.FeeTxHash = ""
			return result, f.err
		}
		return nil, f.err
	}
	return result, nil
}

type fixture struct {
	orchestrator *WithdrawalOrchestrator
	withdrawals  *fakeWithdrawals
	balances     *fakeBalances
	gateway      *fakeGateway
	cfg          *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Wallet: config.WalletConfig{
			CustodyPrivateKey: testCustodyKey,
			AdminWallet:       testAdminWallet,
			FeeWallet:         testFeeWallet,
			Seed:              "test-seed",
			Salt:              "test-salt",
		},
	}
	balances := newFakeBalances()
	withdrawals := newFakeWithdrawals(balances)
	gateway := &fakeGateway{}
	notifier := notification.NewNotifier(config.TelegramConfig{})
	orchestrator := NewWithdrawalOrchestrator(cfg, withdrawals, balances, gateway, notifier, zap.NewNop())
	return &fixture{
		orchestrator: orchestrator,
		withdrawals:  withdrawals,
		balances:     balances,
		gateway:      gateway,
		cfg:          cfg,
	}
}

func TestComputeFee(t *testing.T) {
	fee, net := ComputeFee(decimal.NewFromInt(100))
	if !fee.Equal(decimal.NewFromInt(10)) {
		t.Errorf("fee = %s, want 10", fee)
	}
	if !net.Equal(decimal.NewFromInt(90)) {
		t.Errorf("net = %s, want 90", net)
	}
	if !fee.Add(net).Equal(decimal.NewFromInt(100)) {
		t.Error("fee + net does not reassemble the gross amount")
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(500))

	request, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(100), testAdminWallet, "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}

	if request.Status != entities.WithdrawalStatusPending {
		t.Errorf("status = %s, want pending", request.Status)
	}
	if !request.Fee.Equal(decimal.NewFromInt(10)) || !request.NetAmount.Equal(decimal.NewFromInt(90)) {
		t.Errorf("fee split = %s/%s, want 10/90", request.Fee, request.NetAmount)
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(400)) {
		t.Errorf("balance after submit = %s, want 400", got)
	}
}

func TestSubmitRejectsSecondPending(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(500))

	if _, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(100), testAdminWallet, ""); err != nil {
		t.Fatal(err)
	}
	_, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(50), testAdminWallet, "")
	if !errors.Is(err, ErrPendingWithdrawalExists) {
		t.Fatalf("second submit error = %v, want %v", err, ErrPendingWithdrawalExists)
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(400)) {
		t.Errorf("balance after rejected submit = %s, want 400", got)
	}
}

func TestSubmitInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(10))

	_, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(100), testAdminWallet, "")
	if !errors.Is(err, domainRepos.ErrInsufficientBalance) {
		t.Fatalf("error = %v, want %v", err, domainRepos.ErrInsufficientBalance)
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(500))

	if _, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(100), "not-an-address", ""); err == nil {
		t.Error("malformed destination accepted")
	}
	if _, err := f.orchestrator.Submit(context.Background(), 1, decimal.Zero, testAdminWallet, ""); err == nil {
		t.Error("zero amount accepted")
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance touched by rejected submits: %s", got)
	}
}

func TestApproveSettlesWithFeeSplit(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(500))

	request, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(100), testAdminWallet, "")
	if err != nil {
		t.Fatal(err)
	}

	settled, err := f.orchestrator.Approve(context.Background(), request.ID)
	if err != nil {
		t.Fatal(err)
	}

	if settled.Status != entities.WithdrawalStatusCompleted {
		t.Errorf("status = %s, want completed", settled.Status)
	}
	if settled.TxHash != "0xusertx" || settled.FeeTxHash != "0xfeetx" {
		t.Errorf("hashes = %s/%s", settled.TxHash, settled.FeeTxHash)
	}
	if !f.gateway.lastGross.Equal(decimal.NewFromInt(100)) || !f.gateway.lastFee.Equal(decimal.NewFromInt(10)) {
		t.Errorf("gateway saw gross=%s fee=%s, want 100/10", f.gateway.lastGross, f.gateway.lastFee)
	}

	stored, err := f.withdrawals.GetByID(context.Background(), request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.WithdrawalStatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(400)) {
		t.Errorf("balance after completion = %s, want 400", got)
	}
}

func TestApproveWithoutFeeWalletSendsNet(t *testing.T) {
	f := newFixture(t)
	f.cfg.Wallet.FeeWallet = ""
	f.balances.set(1, decimal.NewFromInt(500))

	request, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(100), testAdminWallet, "")
	if err != nil {
		t.Fatal(err)
	}
	settled, err := f.orchestrator.Approve(context.Background(), request.ID)
	if err != nil {
		t.Fatal(err)
	}

	if settled.TxHash != "0xsingletx" {
		t.Errorf("tx hash = %s, want single-transfer hash", settled.TxHash)
	}
	if !f.gateway.lastGross.Equal(decimal.NewFromInt(90)) {
		t.Errorf("gateway saw amount %s, want net 90", f.gateway.lastGross)
	}
}

func TestApproveChainFailureRefunds(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(200))
	f.gateway.err = &bsc.ChainSubmissionError{Op: "send transaction", Err: errors.New("nonce too low")}

	request, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(50), testAdminWallet, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("balance after submit = %s, want 150", got)
	}

	if _, err := f.orchestrator.Approve(context.Background(), request.ID); err == nil {
		t.Fatal("chain failure did not surface")
	}

	stored, err := f.withdrawals.GetByID(context.Background(), request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.WithdrawalStatusRejected {
		t.Errorf("stored status = %s, want rejected", stored.Status)
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("balance after refund = %s, want the full 200 back", got)
	}
}

func TestApproveTimeoutLeavesProcessing(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(200))
	f.gateway.err = &bsc.SubmissionTimeoutError{TxHash: "0xpendingtx"}

	request, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(50), testAdminWallet, "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.orchestrator.Approve(context.Background(), request.ID)
	var timeout *bsc.SubmissionTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("error = %v, want SubmissionTimeoutError", err)
	}

	stored, err := f.withdrawals.GetByID(context.Background(), request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.WithdrawalStatusProcessing {
		t.Errorf("stored status = %s, want processing for manual reconciliation", stored.Status)
	}
	// The transfer may have landed; refunding here could pay twice.
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("balance = %s, want 150 (no refund on unknown outcome)", got)
	}
}

func TestApprovePartialTransferCompletesWithWarning(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(200))
	f.gateway.err = &bsc.PartialTransferError{UserTxHash: "0xusertx", Err: errors.New("fee transfer reverted")}

	request, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(50), testAdminWallet, "")
	if err != nil {
		t.Fatal(err)
	}

	settled, err := f.orchestrator.Approve(context.Background(), request.ID)
	if err != nil {
		t.Fatalf("partial transfer must resolve, got error: %v", err)
	}
	if settled.Status != entities.WithdrawalStatusCompleted {
		t.Errorf("status = %s, want completed", settled.Status)
	}
	if settled.AdminNote == "" {
		t.Error("partial settlement recorded without a warning note")
	}

	stored, err := f.withdrawals.GetByID(context.Background(), request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.WithdrawalStatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
	// The user already received the funds; no refund.
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("balance = %s, want 150", got)
	}
}

func TestApproveUnauthorizedDestinationBlocked(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(200))

	// A structurally valid address that is not one of the configured
	// admin wallets, injected as if the row had been tampered with.
	request := &entities.WithdrawalRequest{
		UserID:    1,
		ToAddress: "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae",
		Amount:    decimal.NewFromInt(50),
		Status:    entities.WithdrawalStatusPending,
	}
	if err := f.withdrawals.Create(context.Background(), request); err != nil {
		t.Fatal(err)
	}
	f.balances.set(1, decimal.NewFromInt(150))

	_, err := f.orchestrator.Approve(context.Background(), request.ID)
	var violation *SecurityViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("error = %v, want SecurityViolationError", err)
	}
	if f.gateway.calls != 0 {
		t.Error("blocked transfer still reached the chain gateway")
	}

	stored, _ := f.withdrawals.GetByID(context.Background(), request.ID)
	if stored.Status != entities.WithdrawalStatusRejected {
		t.Errorf("stored status = %s, want rejected", stored.Status)
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("balance = %s, want 200 after refund", got)
	}
}

func TestApproveExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(500))

	request, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(100), testAdminWallet, "")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.orchestrator.Approve(context.Background(), request.ID)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domainRepos.ErrAlreadyProcessed):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("wins = %d, losses = %d, want exactly one of each", wins, losses)
	}
	if f.gateway.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", f.gateway.calls)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	f.balances.set(1, decimal.NewFromInt(500))

	request, err := f.orchestrator.Submit(context.Background(), 1, decimal.NewFromInt(100), testAdminWallet, "")
	if err != nil {
		t.Fatal(err)
	}

	rejected, err := f.orchestrator.Reject(context.Background(), request.ID, "manual review failed")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != entities.WithdrawalStatusRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance = %s, want full 500 after refund", got)
	}

	// Rejecting again must not refund twice.
	if _, err := f.orchestrator.Reject(context.Background(), request.ID, "again"); !errors.Is(err, domainRepos.ErrAlreadyProcessed) {
		t.Fatalf("second reject error = %v, want %v", err, domainRepos.ErrAlreadyProcessed)
	}
	if got := f.balances.get(1); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance after double reject = %s, want 500", got)
	}
}

func TestApproveMissingRequest(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orchestrator.Approve(context.Background(), 999); !errors.Is(err, domainRepos.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, domainRepos.ErrNotFound)
	}
}
