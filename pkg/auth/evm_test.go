package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func signEIP191Message(t *testing.T, message string) (string, string) {
	t.Helper()

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() failed: %v", err)
	}

	prefixedMessage := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixedMessage))

	signature, err := crypto.Sign(hash.Bytes(), privateKey)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	// wallets emit v as 27/28
	signature[64] += 27

	address := crypto.PubkeyToAddress(privateKey.PublicKey).Hex()
	return address, "0x" + hex.EncodeToString(signature)
}

func TestVerifyWalletLink(t *testing.T) {
	wallet, signature := signEIP191Message(t, WalletLinkMessage("tg:42"))

	got, err := VerifyWalletLink("tg:42", wallet, signature)
	if err != nil {
		t.Fatalf("VerifyWalletLink() failed: %v", err)
	}
	if got != wallet {
		t.Fatalf("VerifyWalletLink() = %s, want %s", got, wallet)
	}
}

func TestVerifyWalletLink_LowercaseWallet(t *testing.T) {
	wallet, signature := signEIP191Message(t, WalletLinkMessage("tg:42"))

	lower := strings.ToLower(wallet)
	got, err := VerifyWalletLink("tg:42", lower, signature)
	if err != nil {
		t.Fatalf("VerifyWalletLink() failed: %v", err)
	}
	if got != wallet {
		t.Fatalf("VerifyWalletLink() = %s, want checksummed %s", got, wallet)
	}
}

func TestVerifyWalletLink_Rejects(t *testing.T) {
	wallet, signature := signEIP191Message(t, WalletLinkMessage("tg:42"))
	other, _ := signEIP191Message(t, "unrelated")

	tests := []struct {
		name        string
		participant string
		wallet      string
		signature   string
		wantErr     error
	}{
		{name: "other participant", participant: "tg:43", wallet: wallet, signature: signature, wantErr: ErrSignerMismatch},
		{name: "other wallet", participant: "tg:42", wallet: other, signature: signature, wantErr: ErrSignerMismatch},
		{name: "malformed wallet", participant: "tg:42", wallet: "0x1234", signature: signature, wantErr: ErrInvalidWallet},
		{name: "bad hex", participant: "tg:42", wallet: wallet, signature: "0xzz"},
		{name: "short signature", participant: "tg:42", wallet: wallet, signature: "0x" + hex.EncodeToString(make([]byte, 64))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyWalletLink(tt.participant, tt.wallet, tt.signature)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateEVMAddress(t *testing.T) {
	if !ValidateEVMAddress("0x1111111111111111111111111111111111111111") {
		t.Error("expected valid address")
	}
	for _, addr := range []string{"", "1111111111111111111111111111111111111111", "0x11", "0xzz11111111111111111111111111111111111111"} {
		if ValidateEVMAddress(addr) {
			t.Errorf("ValidateEVMAddress(%q) = true", addr)
		}
	}
}
