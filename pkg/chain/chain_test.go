package chain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWei(t *testing.T) {
	assert.Equal(t, "1000000000000000000", ToWei(1, 18).String())
	assert.Equal(t, "1500000", ToWei(1.5, 6).String())
	assert.Equal(t, "100000000000000000", ToWei(0.1, 18).String())
	assert.Equal(t, "0", ToWei(0, 18).String())
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("0x0000000000000000000000000000000000000000"))
	assert.True(t, IsValidAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"))
	assert.False(t, IsValidAddress("not-an-address"))
	assert.False(t, IsValidAddress("0x1234"))
}

func signMessage(t *testing.T, message string) (address, signature string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256([]byte(prefixed))
	sig, err := crypto.Sign(hash, key)
	require.NoError(t, err)
	// Present V as 27/28 the way browser wallets do.
	sig[64] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerifyPersonalSign(t *testing.T) {
	message := "Sign this message to log in to Affily.\nNonce: abc123"
	address, signature := signMessage(t, message)

	require.NoError(t, VerifyPersonalSign(address, message, signature))

	// Address comparison is case-insensitive.
	require.NoError(t, VerifyPersonalSign(strings.ToLower(address), message, signature))
}

func TestVerifyPersonalSign_Mismatch(t *testing.T) {
	message := "Sign this message to log in to Affily.\nNonce: abc123"
	_, signature := signMessage(t, message)
	otherAddress, _ := signMessage(t, message)

	err := VerifyPersonalSign(otherAddress, message, signature)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	// A tampered message also fails to recover the signer.
	err = VerifyPersonalSign(otherAddress, message+"x", signature)
	assert.Error(t, err)
}

func TestVerifyPersonalSign_BadInput(t *testing.T) {
	assert.Error(t, VerifyPersonalSign("0x0", "msg", "zzzz"))
	assert.Error(t, VerifyPersonalSign("0x0", "msg", "0x1234"))
}
