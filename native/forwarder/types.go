package forwarder

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Domain binds signed requests to one deployment: a request signed for one
// name/version/chain/verifying-contract tuple verifies nowhere else.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract [20]byte
}

// DefaultDomainName and DefaultDomainVersion match the values relay clients
// embed when building typed-data payloads.
const (
	DefaultDomainName    = "MinimalForwarder"
	DefaultDomainVersion = "0.0.1"
)

// ForwardRequest is the payload a user signs so a relay can submit a call on
// their behalf. Value and Gas are carried for digest compatibility with
// typed-data clients; the ledger itself does not meter them.
type ForwardRequest struct {
	From  [20]byte
	To    [20]byte
	Value *big.Int
	Gas   uint64
	Nonce uint64
	Data  []byte
}

// Clone returns a deep copy of the request.
func (r *ForwardRequest) Clone() *ForwardRequest {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Value != nil {
		clone.Value = new(big.Int).Set(r.Value)
	} else {
		clone.Value = big.NewInt(0)
	}
	clone.Data = append([]byte(nil), r.Data...)
	return &clone
}

var (
	domainTypehash  = ethcrypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	requestTypehash = ethcrypto.Keccak256([]byte("ForwardRequest(address from,address to,uint256 value,uint256 gas,uint256 nonce,bytes data)"))
)

func encodeUint(v *big.Int) []byte {
	out := make([]byte, 32)
	if v != nil {
		v.FillBytes(out)
	}
	return out
}

func encodeUint64(v uint64) []byte {
	return encodeUint(new(big.Int).SetUint64(v))
}

func encodeAddress(addr [20]byte) []byte {
	out := make([]byte, 32)
	copy(out[12:], addr[:])
	return out
}

// Separator computes the EIP-712 domain separator hash.
func (d Domain) Separator() []byte {
	return ethcrypto.Keccak256(
		domainTypehash,
		ethcrypto.Keccak256([]byte(d.Name)),
		ethcrypto.Keccak256([]byte(d.Version)),
		encodeUint64(d.ChainID),
		encodeAddress(d.VerifyingContract),
	)
}

// StructHash computes the EIP-712 hash of the request fields.
func (r *ForwardRequest) StructHash() []byte {
	value := r.Value
	if value == nil {
		value = big.NewInt(0)
	}
	return ethcrypto.Keccak256(
		requestTypehash,
		encodeAddress(r.From),
		encodeAddress(r.To),
		encodeUint(value),
		encodeUint64(r.Gas),
		encodeUint64(r.Nonce),
		ethcrypto.Keccak256(r.Data),
	)
}

// Digest computes the final signable hash: keccak256(0x19 0x01 || domain
// separator || struct hash) per the typed-data encoding rules.
func (r *ForwardRequest) Digest(domain Domain) []byte {
	return ethcrypto.Keccak256([]byte{0x19, 0x01}, domain.Separator(), r.StructHash())
}
