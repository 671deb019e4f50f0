package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// walletLinkPrefix namespaces wallet-link messages so a signature for this
// service cannot be replayed elsewhere.
const walletLinkPrefix = "advent-agent:"

var (
	// ErrInvalidWallet is returned when the wallet is not a hex EVM address.
	ErrInvalidWallet = errors.New("invalid wallet address")
	// ErrSignerMismatch is returned when the signature was made by another key.
	ErrSignerMismatch = errors.New("signature does not match wallet")
)

// VerifyEIP191Signature verifies an EIP-191 personal_sign signature
// Returns the recovered Ethereum address if valid
func VerifyEIP191Signature(message, signature string) (common.Address, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature hex: %w", err)
	}

	if len(sigBytes) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: expected 65, got %d", len(sigBytes))
	}

	// v can be 0, 1, 27, or 28 - normalize to 0 or 1
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	prefixedMsg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	msgHash := crypto.Keccak256Hash([]byte(prefixedMsg))

	pubKey, err := crypto.SigToPub(msgHash.Bytes(), sigBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// WalletLinkMessage is the text a participant signs to link a payout wallet.
func WalletLinkMessage(participant string) string {
	return walletLinkPrefix + participant
}

// VerifyWalletLink checks that signature is the wallet's EIP-191 signature
// over WalletLinkMessage(participant) and returns the checksummed wallet.
func VerifyWalletLink(participant, wallet, signature string) (string, error) {
	if !ValidateEVMAddress(wallet) {
		return "", ErrInvalidWallet
	}
	signer, err := VerifyEIP191Signature(WalletLinkMessage(participant), signature)
	if err != nil {
		return "", err
	}
	if signer != common.HexToAddress(wallet) {
		return "", ErrSignerMismatch
	}
	return signer.Hex(), nil
}

// ValidateEVMAddress checks if a string is a valid EVM address
func ValidateEVMAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") {
		return false
	}
	if len(address) != 42 {
		return false
	}
	_, err := hex.DecodeString(address[2:])
	return err == nil
}

// NormalizeAddress returns a checksummed EVM address
func NormalizeAddress(address string) string {
	return common.HexToAddress(address).Hex()
}
