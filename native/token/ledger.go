package token

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInsufficientBalance rejects transfers exceeding the payer's funds.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance rejects operator-initiated transfers beyond
	// the payer's pre-authorized allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")

	errNilState = errors.New("token ledger: state not configured")
)

type ledgerState interface {
	BalanceGet(addr [20]byte) (*big.Int, error)
	BalancePut(addr [20]byte, amount *big.Int) error
	AllowanceGet(owner, spender [20]byte) (*big.Int, error)
	AllowancePut(owner, spender [20]byte, amount *big.Int) error
}

// Ledger is the fungible payment unit the marketplace settles in: balances
// plus spender allowances. The marketplace custody account acts as the
// operator; debits of any other payer consume that payer's allowance to the
// operator, mirroring a transfer-with-allowance token.
type Ledger struct {
	state    ledgerState
	operator [20]byte
}

// NewLedger creates a ledger whose operator-side debits are charged against
// allowances granted to the given operator account.
func NewLedger(operator [20]byte) *Ledger {
	return &Ledger{operator: operator}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// BalanceOf returns the account balance; unseen accounts hold zero.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	bal, err := l.state.BalanceGet(addr)
	if err != nil {
		return nil, err
	}
	return cloneOrZero(bal), nil
}

// Allowance returns the amount the spender may still debit from the owner.
func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	allowance, err := l.state.AllowanceGet(owner, spender)
	if err != nil {
		return nil, err
	}
	return cloneOrZero(allowance), nil
}

// Approve sets the spender's allowance over the owner's balance.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneOrZero(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative allowance")
	}
	return l.state.AllowancePut(owner, spender, amt)
}

// Mint credits freshly issued units to the account.
func (l *Ledger) Mint(to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneOrZero(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("token: mint amount must be positive")
	}
	bal, err := l.state.BalanceGet(to)
	if err != nil {
		return err
	}
	return l.state.BalancePut(to, new(big.Int).Add(cloneOrZero(bal), amt))
}

// TransferFrom moves amount from payer to payee. When the payer is not the
// operator itself the payer's allowance to the operator is checked and
// consumed first, so the allowance shrinks even across split settlements.
func (l *Ledger) TransferFrom(payer, payee [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneOrZero(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative transfer amount")
	}
	if amt.Sign() == 0 || payer == payee {
		return nil
	}
	payerBal, err := l.state.BalanceGet(payer)
	if err != nil {
		return err
	}
	payerBal = cloneOrZero(payerBal)
	if payerBal.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	var allowance *big.Int
	if payer != l.operator {
		current, err := l.state.AllowanceGet(payer, l.operator)
		if err != nil {
			return err
		}
		allowance = cloneOrZero(current)
		if allowance.Cmp(amt) < 0 {
			return ErrInsufficientAllowance
		}
	}
	payeeBal, err := l.state.BalanceGet(payee)
	if err != nil {
		return err
	}
	// All checks passed; writes below cannot leave a partial debit.
	if allowance != nil {
		if err := l.state.AllowancePut(payer, l.operator, new(big.Int).Sub(allowance, amt)); err != nil {
			return err
		}
	}
	if err := l.state.BalancePut(payer, new(big.Int).Sub(payerBal, amt)); err != nil {
		return err
	}
	return l.state.BalancePut(payee, new(big.Int).Add(cloneOrZero(payeeBal), amt))
}
