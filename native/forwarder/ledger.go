package forwarder

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"kudomarket/core/events"
	"kudomarket/core/types"
)

var (
	// ErrBadSignature rejects requests whose signature does not recover to
	// the claimed signer under the ledger's domain.
	ErrBadSignature = errors.New("forwarder: signature does not match request")
	// ErrBadNonce rejects requests whose nonce differs from the signer's
	// current counter; replays and out-of-order submissions both land here.
	ErrBadNonce = errors.New("forwarder: nonce mismatch")

	errNilState      = errors.New("forwarder ledger: state not configured")
	errNilDispatcher = errors.New("forwarder ledger: dispatcher not configured")
)

type ledgerState interface {
	NonceGet(signer [20]byte) (uint64, error)
	NoncePut(signer [20]byte, nonce uint64) error
}

// Dispatcher receives the verified call with the original signer as the
// effective caller, regardless of which identity physically submitted it.
type Dispatcher interface {
	Dispatch(from, to [20]byte, value *big.Int, data []byte) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(from, to [20]byte, value *big.Int, data []byte) error

// Dispatch implements the Dispatcher interface.
func (f DispatcherFunc) Dispatch(from, to [20]byte, value *big.Int, data []byte) error {
	return f(from, to, value, data)
}

type forwarderEvent struct {
	evt *types.Event
}

func (e forwarderEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e forwarderEvent) Event() *types.Event { return e.evt }

// Ledger verifies signed relay requests and tracks per-signer monotonic
// nonces. The nonce advances before the wrapped call is dispatched, so a
// failed or reentrant call can never reuse a consumed nonce.
type Ledger struct {
	state      ledgerState
	dispatcher Dispatcher
	emitter    events.Emitter
	domain     Domain
}

// NewLedger creates a relay ledger bound to the given signing domain, with a
// no-op emitter. Callers can override the emitter via SetEmitter.
func NewLedger(domain Domain) *Ledger {
	return &Ledger{
		domain:  domain,
		emitter: events.NoopEmitter{},
	}
}

// SetState configures the state backend used for nonce tracking.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetDispatcher configures the call target invoked after verification.
func (l *Ledger) SetDispatcher(d Dispatcher) { l.dispatcher = d }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Domain returns the signing domain the ledger verifies against.
func (l *Ledger) Domain() Domain { return l.domain }

func (l *Ledger) emit(event *types.Event) {
	if l == nil || l.emitter == nil || event == nil {
		return
	}
	l.emitter.Emit(forwarderEvent{evt: event})
}

// Nonce returns the signer's current counter; unseen signers report 0.
func (l *Ledger) Nonce(signer [20]byte) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	return l.state.NonceGet(signer)
}

// Verify checks the signature and nonce of a request without executing it.
func (l *Ledger) Verify(req *ForwardRequest, sig []byte) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if req == nil {
		return ErrBadSignature
	}
	signer, err := recoverSigner(req.Digest(l.domain), sig)
	if err != nil || signer != req.From {
		return ErrBadSignature
	}
	current, err := l.state.NonceGet(req.From)
	if err != nil {
		return err
	}
	if req.Nonce != current {
		return ErrBadNonce
	}
	return nil
}

// Execute verifies the request and dispatches the wrapped call with the
// signer as the effective caller. The nonce is consumed before dispatch and
// stays consumed even when the dispatched call fails; the dispatch error is
// returned to the relay for the caller to act on.
func (l *Ledger) Execute(req *ForwardRequest, sig []byte) error {
	if err := l.Verify(req, sig); err != nil {
		return err
	}
	if l.dispatcher == nil {
		return errNilDispatcher
	}
	if err := l.state.NoncePut(req.From, req.Nonce+1); err != nil {
		return err
	}
	dispatchErr := l.dispatcher.Dispatch(req.From, req.To, req.Value, req.Data)
	l.emit(NewExecutedEvent(req, dispatchErr == nil))
	return dispatchErr
}

// SignRequest produces a signature over the request digest under the given
// domain. Relay clients and tests share this helper.
func SignRequest(priv *ecdsa.PrivateKey, domain Domain, req *ForwardRequest) ([]byte, error) {
	return ethcrypto.Sign(req.Digest(domain), priv)
}

func recoverSigner(digest []byte, sig []byte) ([20]byte, error) {
	if len(sig) != 65 {
		return [20]byte{}, ErrBadSignature
	}
	normalized := append([]byte(nil), sig...)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(digest, normalized)
	if err != nil {
		return [20]byte{}, err
	}
	var out [20]byte
	copy(out[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return out, nil
}
