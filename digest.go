package payments

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the expected r||s||v signature length.
const SignatureLength = 65

// maxUint256 bounds the numeric domain of intent amounts.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// intentTupleArgs describes the ABI encoding of the signed intent tuple.
// The chain id, the effective sender, and the engine's own address are part
// of the tuple so a signature cannot be replayed across chains, senders, or
// deployments.
var intentTupleArgs = abi.Arguments{
	{Type: mustABIType("uint256")}, // recipientAmount
	{Type: mustABIType("uint256")}, // deadline
	{Type: mustABIType("address")}, // recipient
	{Type: mustABIType("address")}, // recipientCurrency
	{Type: mustABIType("address")}, // refundDestination
	{Type: mustABIType("uint256")}, // feeAmount
	{Type: mustABIType("bytes16")}, // id
	{Type: mustABIType("address")}, // operator
	{Type: mustABIType("uint256")}, // chainId
	{Type: mustABIType("address")}, // sender
	{Type: mustABIType("address")}, // engine
}

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// IntentDigest computes the keccak256 digest of the intent tuple bound to the
// given chain, effective sender, and engine identity. This digest is what the
// prefix convention wraps before signing.
func IntentDigest(in *TransferIntent, chainID *big.Int, sender, engine common.Address) (common.Hash, error) {
	recipientAmount := in.RecipientAmount
	if recipientAmount == nil {
		recipientAmount = new(big.Int)
	}
	feeAmount := in.FeeAmount
	if feeAmount == nil {
		feeAmount = new(big.Int)
	}
	deadline := in.Deadline
	if deadline == nil {
		deadline = new(big.Int)
	}
	packed, err := intentTupleArgs.Pack(
		recipientAmount,
		deadline,
		in.Recipient,
		in.RecipientCurrency.DigestAddress(),
		in.RefundDestination,
		feeAmount,
		[16]byte(in.ID),
		in.Operator,
		chainID,
		sender,
		engine,
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// SigningMessage applies the intent's prefix convention to the digest,
// producing the 32-byte message the signature covers. An empty prefix selects
// the default EIP-191 personal-sign wrapper; otherwise the supplied prefix
// bytes are concatenated with the digest and hashed.
func SigningMessage(digest common.Hash, prefix []byte) common.Hash {
	if len(prefix) == 0 {
		return common.BytesToHash(accounts.TextHash(digest.Bytes()))
	}
	return crypto.Keccak256Hash(prefix, digest.Bytes())
}

// RecoverIntentSigner recovers the address that signed the intent under the
// given chain/sender/engine binding. The signature's v byte may be 0/1 or the
// conventional 27/28.
func RecoverIntentSigner(in *TransferIntent, chainID *big.Int, sender, engine common.Address) (common.Address, error) {
	if len(in.Signature) != SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	digest, err := IntentDigest(in, chainID, sender, engine)
	if err != nil {
		return common.Address{}, err
	}
	return recoverSigner(SigningMessage(digest, in.Prefix), in.Signature)
}

// recoverSigner recovers the address behind a 65-byte r||s||v signature over
// the given message. The v byte may be 0/1 or the conventional 27/28.
func recoverSigner(message common.Hash, signature []byte) (common.Address, error) {
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] != 0 && sig[64] != 1 {
		return common.Address{}, ErrInvalidSignature
	}
	pub, err := crypto.SigToPub(message.Bytes(), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// checkAmounts enforces the numeric-domain invariant: the individual amounts
// and their sum must fit in uint256 and must not be negative.
func checkAmounts(in *TransferIntent) error {
	for _, v := range []*big.Int{in.RecipientAmount, in.FeeAmount, in.Deadline} {
		if v != nil && v.Sign() < 0 {
			return ErrInvalidTransferDetails
		}
	}
	if in.RecipientAmount != nil && in.RecipientAmount.Cmp(maxUint256) > 0 {
		return ErrAmountOverflow
	}
	if in.FeeAmount != nil && in.FeeAmount.Cmp(maxUint256) > 0 {
		return ErrAmountOverflow
	}
	if in.TotalAmount().Cmp(maxUint256) > 0 {
		return ErrAmountOverflow
	}
	return nil
}
