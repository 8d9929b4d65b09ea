package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// --------------------------------------------------------------------------
// EIP-712 type hashes (pre-computed keccak256 of the canonical type strings).
// --------------------------------------------------------------------------

var (
	// EIP712Domain(string name,string version,uint256 chainId)
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)

	// Receipt(address assetContract,uint256 tokenId,address buyer,uint256 price)
	receiptTypeHash = ethcrypto.Keccak256(
		[]byte("Receipt(address assetContract,uint256 tokenId,address buyer,uint256 price)"),
	)
)

// Signer signs settlement receipts with the marketplace custody key. The
// receipt is an EIP-712 typed digest over (contract, tokenId, buyer, price),
// so any holder of the sale event can verify which custody account settled
// the sale and at what price.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	domainSep  []byte // cached EIP-712 domain separator hash
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key and a
// chain ID used only as a domain-separation value.
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	s := &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}
	s.domainSep = buildDomainSeparator("NFTMarketReceipt", "1", chainID)

	return s, nil
}

// Address returns the custody address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignReceipt signs the settlement receipt for one sale and returns the
// 65-byte r||s||v signature.
func (s *Signer) SignReceipt(contract common.Address, tokenID uint64, buyer common.Address, price *big.Int) ([]byte, error) {
	digest := receiptDigest(s.domainSep, contract, tokenID, buyer, price)

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: signing receipt: %w", err)
	}

	// go-ethereum returns v in {0,1}; EIP-712 expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// RecoverReceiptSigner returns the address that signed a settlement receipt,
// recomputing the digest from the receipt fields. Verification helper for
// consumers of sale events.
func RecoverReceiptSigner(sig []byte, chainID int, contract common.Address, tokenID uint64, buyer common.Address, price *big.Int) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto/signer: expected 65-byte signature, got %d", len(sig))
	}

	domainSep := buildDomainSeparator("NFTMarketReceipt", "1", chainID)
	digest := receiptDigest(domainSep, contract, tokenID, buyer, price)

	// Undo the v offset for go-ethereum's recovery.
	recSig := make([]byte, 65)
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(digest, recSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: recovering signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func receiptDigest(domainSep []byte, contract common.Address, tokenID uint64, buyer common.Address, price *big.Int) []byte {
	structHash := ethcrypto.Keccak256(
		concatBytes(
			receiptTypeHash,
			common.LeftPadBytes(contract.Bytes(), 32),
			bigIntTo32Bytes(new(big.Int).SetUint64(tokenID)),
			common.LeftPadBytes(buyer.Bytes(), 32),
			bigIntTo32Bytes(price),
		),
	)
	return eip712Hash(domainSep, structHash)
}

// buildDomainSeparator returns keccak256(abi.encode(typeHash, nameHash, versionHash, chainId)).
func buildDomainSeparator(name, version string, chainID int) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			eip712DomainTypeHash,
			ethcrypto.Keccak256([]byte(name)),
			ethcrypto.Keccak256([]byte(version)),
			bigIntTo32Bytes(big.NewInt(int64(chainID))),
		),
	)
}

// eip712Hash computes the final EIP-712 digest:
//
//	keccak256("\x19\x01" || domainSeparator || structHash)
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			[]byte{0x19, 0x01},
			domainSep,
			structHash,
		),
	)
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
