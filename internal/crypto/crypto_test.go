package crypto

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	pk, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	keyHex := common.Bytes2Hex(ethcrypto.FromECDSA(pk))

	blob, err := EncryptKey(keyHex, "correct horse battery staple")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, keyHex, got)
}

func TestDecryptWrongPassword(t *testing.T) {
	pk, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	keyHex := common.Bytes2Hex(ethcrypto.FromECDSA(pk))

	blob, err := EncryptKey(keyHex, "right")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptKeyValidation(t *testing.T) {
	_, err := EncryptKey("deadbeef", "pw") // too short
	assert.Error(t, err)

	_, err = EncryptKey("not-hex", "pw")
	assert.Error(t, err)

	_, err = EncryptKey("", "")
	assert.Error(t, err)
}

func TestLoadKeyPrefersRawKey(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0xabcdef"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef", got)

	_, err = LoadKey(KeyConfig{})
	assert.Error(t, err)
}

func TestSignAndRecoverReceipt(t *testing.T) {
	pk, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	keyHex := common.Bytes2Hex(ethcrypto.FromECDSA(pk))

	signer, err := NewSigner(keyHex, 1)
	require.NoError(t, err)

	contract := common.HexToAddress("0x0000000000000000000000000000000000000721")
	buyer := common.HexToAddress("0x00000000000000000000000000000000000000a3")
	price := big.NewInt(1e18)

	sig, err := signer.SignReceipt(contract, 7, buyer, price)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	recovered, err := RecoverReceiptSigner(sig, 1, contract, 7, buyer, price)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)

	// Tampered fields do not recover to the custody address.
	recovered, err = RecoverReceiptSigner(sig, 1, contract, 8, buyer, price)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), recovered)
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	_, err := NewSigner("zz", 1)
	assert.Error(t, err)
}
