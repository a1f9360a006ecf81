package token

import (
	"errors"
	"math/big"
	"testing"
)

type mockLedgerState struct {
	balances   map[[20]byte]*big.Int
	allowances map[[40]byte]*big.Int
}

func newMockLedgerState() *mockLedgerState {
	return &mockLedgerState{
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[[40]byte]*big.Int),
	}
}

func allowanceKey(owner, spender [20]byte) [40]byte {
	var key [40]byte
	copy(key[:20], owner[:])
	copy(key[20:], spender[:])
	return key
}

func (m *mockLedgerState) BalanceGet(addr [20]byte) (*big.Int, error) {
	if bal, ok := m.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *mockLedgerState) BalancePut(addr [20]byte, amount *big.Int) error {
	m.balances[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *mockLedgerState) AllowanceGet(owner, spender [20]byte) (*big.Int, error) {
	if allowance, ok := m.allowances[allowanceKey(owner, spender)]; ok {
		return new(big.Int).Set(allowance), nil
	}
	return big.NewInt(0), nil
}

func (m *mockLedgerState) AllowancePut(owner, spender [20]byte, amount *big.Int) error {
	m.allowances[allowanceKey(owner, spender)] = new(big.Int).Set(amount)
	return nil
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func newTestLedger(t *testing.T) (*Ledger, *mockLedgerState, [20]byte) {
	t.Helper()
	state := newMockLedgerState()
	operator := testAddr(0xCC)
	ledger := NewLedger(operator)
	ledger.SetState(state)
	return ledger, state, operator
}

func balanceOf(t *testing.T, l *Ledger, addr [20]byte) *big.Int {
	t.Helper()
	bal, err := l.BalanceOf(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestMintAndBalance(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	holder := testAddr(0x01)

	if got := balanceOf(t, ledger, holder); got.Sign() != 0 {
		t.Fatalf("fresh account must hold zero, got %s", got)
	}
	if err := ledger.Mint(holder, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Mint(holder, big.NewInt(250)); err != nil {
		t.Fatalf("second mint: %v", err)
	}
	if got := balanceOf(t, ledger, holder); got.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("expected 750, got %s", got)
	}
	if err := ledger.Mint(holder, big.NewInt(0)); err == nil {
		t.Fatalf("zero mint must fail")
	}
	if err := ledger.Mint(holder, big.NewInt(-1)); err == nil {
		t.Fatalf("negative mint must fail")
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger, _, operator := newTestLedger(t)
	payer := testAddr(0x01)
	payee := testAddr(0x02)

	if err := ledger.Mint(payer, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(payer, operator, big.NewInt(600)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := ledger.TransferFrom(payer, payee, big.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := balanceOf(t, ledger, payee); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected payee 400, got %s", got)
	}
	remaining, err := ledger.Allowance(payer, operator)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected allowance 200, got %s", remaining)
	}

	// The remaining allowance no longer covers another 400.
	if err := ledger.TransferFrom(payer, payee, big.NewInt(400)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
}

func TestTransferFromChecksBalanceBeforeAllowance(t *testing.T) {
	ledger, state, operator := newTestLedger(t)
	payer := testAddr(0x01)
	payee := testAddr(0x02)

	if err := ledger.Mint(payer, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(payer, operator, big.NewInt(1000)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := ledger.TransferFrom(payer, payee, big.NewInt(500)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// The failed attempt must not touch balances or the allowance.
	if got := balanceOf(t, ledger, payer); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("payer balance mutated on failure: %s", got)
	}
	allowance, _ := state.AllowanceGet(payer, operator)
	if allowance.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("allowance mutated on failure: %s", allowance)
	}
}

func TestOperatorSpendsWithoutAllowance(t *testing.T) {
	ledger, _, operator := newTestLedger(t)
	payee := testAddr(0x02)

	if err := ledger.Mint(operator, big.NewInt(300)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// The operator's own debits bypass the allowance check.
	if err := ledger.TransferFrom(operator, payee, big.NewInt(300)); err != nil {
		t.Fatalf("operator transfer: %v", err)
	}
	if got := balanceOf(t, ledger, payee); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected 300, got %s", got)
	}
}

func TestTransferFromEdgeAmounts(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	payer := testAddr(0x01)
	payee := testAddr(0x02)

	if err := ledger.TransferFrom(payer, payee, big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer must be a no-op: %v", err)
	}
	if err := ledger.TransferFrom(payer, payer, big.NewInt(100)); err != nil {
		t.Fatalf("self transfer must be a no-op: %v", err)
	}
	if err := ledger.TransferFrom(payer, payee, big.NewInt(-5)); err == nil {
		t.Fatalf("negative transfer must fail")
	}
	if got := balanceOf(t, ledger, payer); got.Sign() != 0 {
		t.Fatalf("no-op transfers must not create funds, got %s", got)
	}
}

func TestApproveReplacesAllowance(t *testing.T) {
	ledger, _, operator := newTestLedger(t)
	owner := testAddr(0x01)

	if err := ledger.Approve(owner, operator, big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.Approve(owner, operator, big.NewInt(40)); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	allowance, err := ledger.Allowance(owner, operator)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if allowance.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("approve must replace, not add: %s", allowance)
	}
	if err := ledger.Approve(owner, operator, big.NewInt(-1)); err == nil {
		t.Fatalf("negative allowance must fail")
	}
}
