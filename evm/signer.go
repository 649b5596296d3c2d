// Package evm provides the operator-side signer for transfer intents.
// Operators hold an ECDSA key, construct intents off-system, and sign the
// digest the engine will reconstruct during validation.
package evm

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	payments "github.com/PaulElisha/KaiaChain-Payment-Protocol"
)

// Signer signs transfer intents on behalf of an operator.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	prefix     []byte
}

// SignerOption configures a Signer.
type SignerOption func(*Signer) error

// NewSigner creates a new operator signer with the given options. A private
// key and a chain id are required.
func NewSigner(opts ...SignerOption) (*Signer, error) {
	s := &Signer{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.privateKey == nil {
		return nil, payments.ErrInvalidKey
	}
	if s.chainID == nil {
		return nil, payments.ErrInvalidTransferDetails
	}

	s.address = crypto.PubkeyToAddress(s.privateKey.PublicKey)
	return s, nil
}

// WithPrivateKey sets the private key from a hex string.
func WithPrivateKey(hexKey string) SignerOption {
	return func(s *Signer) error {
		hexKey = strings.TrimPrefix(hexKey, "0x")

		privateKey, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return payments.ErrInvalidKey
		}

		s.privateKey = privateKey
		return nil
	}
}

// WithECDSAKey sets the private key directly.
func WithECDSAKey(key *ecdsa.PrivateKey) SignerOption {
	return func(s *Signer) error {
		if key == nil {
			return payments.ErrInvalidKey
		}
		s.privateKey = key
		return nil
	}
}

// WithChainID sets the chain the signatures are bound to.
func WithChainID(chainID *big.Int) SignerOption {
	return func(s *Signer) error {
		s.chainID = new(big.Int).Set(chainID)
		return nil
	}
}

// WithChain binds the signer to a known chain configuration.
func WithChain(cfg payments.ChainConfig) SignerOption {
	return func(s *Signer) error {
		s.chainID = new(big.Int).Set(cfg.ChainID)
		return nil
	}
}

// WithPrefix sets an alternate message-prefixing convention applied to every
// signed intent that does not carry its own prefix.
func WithPrefix(prefix []byte) SignerOption {
	return func(s *Signer) error {
		s.prefix = append([]byte(nil), prefix...)
		return nil
	}
}

// Address returns the signer's address.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID returns the chain the signer is bound to.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// SignIntent fills in the intent's signature over the digest bound to the
// given engine identity and effective sender. If the intent's operator field
// is unset it is set to the signer's address; an already-set operator field
// is left untouched, the engine verifies it against the recovered signer.
// The signer's configured prefix, if any, is applied when the intent carries
// none.
func (s *Signer) SignIntent(in *payments.TransferIntent, engine, sender common.Address) error {
	if in.Operator == (common.Address{}) {
		in.Operator = s.address
	}
	if len(in.Prefix) == 0 && len(s.prefix) > 0 {
		in.Prefix = append([]byte(nil), s.prefix...)
	}

	digest, err := payments.IntentDigest(in, s.chainID, sender, engine)
	if err != nil {
		return err
	}
	message := payments.SigningMessage(digest, in.Prefix)

	signature, err := crypto.Sign(message.Bytes(), s.privateKey)
	if err != nil {
		return payments.NewPaymentError(payments.ErrCodeInvalidSignature, "failed to sign intent", err)
	}

	// Conventional recovery id (27 or 28).
	signature[64] += 27

	in.Signature = signature
	return nil
}

// SignRegistration authorizes setting the signer's fee destination on the
// given engine, valid until deadline (unix seconds).
func (s *Signer) SignRegistration(feeDestination common.Address, deadline *big.Int, engine common.Address) ([]byte, error) {
	return s.signRegistryMutation(payments.ActionRegister, feeDestination, deadline, engine)
}

// SignUnregistration authorizes removing the signer's registry entry on the
// given engine.
func (s *Signer) SignUnregistration(deadline *big.Int, engine common.Address) ([]byte, error) {
	return s.signRegistryMutation(payments.ActionUnregister, common.Address{}, deadline, engine)
}

func (s *Signer) signRegistryMutation(action string, feeDestination common.Address, deadline *big.Int, engine common.Address) ([]byte, error) {
	digest, err := payments.RegistryMutationDigest(action, s.address, feeDestination, deadline, s.chainID, engine)
	if err != nil {
		return nil, err
	}
	message := payments.SigningMessage(digest, nil)

	signature, err := crypto.Sign(message.Bytes(), s.privateKey)
	if err != nil {
		return nil, payments.NewPaymentError(payments.ErrCodeInvalidSignature, "failed to sign registry mutation", err)
	}
	signature[64] += 27
	return signature, nil
}
