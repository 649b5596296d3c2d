package payments

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Registry mutations arriving over a transport carry the operator's own
// signature: only the operator may set or remove its entry, and the transport
// proves that by signature recovery rather than by session identity. The
// signed tuple binds the action, the destination, a deadline, and the chain
// and engine identity, with the same domain separation as the intent digest.

const (
	// ActionRegister authorizes setting the operator's fee destination.
	ActionRegister = "register"

	// ActionUnregister authorizes removing the operator's entry.
	ActionUnregister = "unregister"
)

var registryTupleArgs = abi.Arguments{
	{Type: mustABIType("string")},  // action
	{Type: mustABIType("address")}, // operator
	{Type: mustABIType("address")}, // feeDestination
	{Type: mustABIType("uint256")}, // deadline
	{Type: mustABIType("uint256")}, // chainId
	{Type: mustABIType("address")}, // engine
}

// RegistryMutationDigest computes the digest an operator signs to authorize a
// registry mutation. For ActionUnregister the feeDestination is the zero
// address.
func RegistryMutationDigest(action string, operator, feeDestination common.Address, deadline, chainID *big.Int, engine common.Address) (common.Hash, error) {
	if deadline == nil {
		deadline = new(big.Int)
	}
	packed, err := registryTupleArgs.Pack(
		action,
		operator,
		feeDestination,
		deadline,
		chainID,
		engine,
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// RecoverRegistryMutationSigner recovers the address that authorized the
// mutation. Registry mutations always use the default EIP-191 wrapper.
func RecoverRegistryMutationSigner(action string, operator, feeDestination common.Address, deadline, chainID *big.Int, engine common.Address, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	digest, err := RegistryMutationDigest(action, operator, feeDestination, deadline, chainID, engine)
	if err != nil {
		return common.Address{}, err
	}
	return recoverSigner(SigningMessage(digest, nil), signature)
}
