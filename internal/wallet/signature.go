package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrBadSignature is returned when a signature does not recover to the
// claimed address.
var ErrBadSignature = errors.New("wallet signature does not match address")

// VerifySignature checks a personal_sign signature of message against addr.
// Wallets report the recovery id as 27/28; both that and 0/1 are accepted.
func VerifySignature(addr Address, message, signature string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: malformed signature", ErrBadSignature)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if crypto.PubkeyToAddress(*pub) != addr.Common() {
		return ErrBadSignature
	}
	return nil
}

// SignMessage produces the signature a wallet returns for personal_sign.
func SignMessage(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// AddressOf returns the checksummed address controlled by key.
func AddressOf(key *ecdsa.PrivateKey) Address {
	return Address(crypto.PubkeyToAddress(key.PublicKey).Hex())
}
