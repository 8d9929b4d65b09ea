package app

import (
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/config"
	"github.com/alanyoungcy/nftmarket/internal/custody"
	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
)

var (
	testOwner   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testSeller  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	testBuyer   = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	testCustody = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	testNFT     = common.HexToAddress("0x0000000000000000000000000000000000000721")
	testEdition = common.HexToAddress("0x0000000000000000000000000000000000001155")
)

func TestBuildCustody(t *testing.T) {
	t.Run("registers an adapter per configured contract", func(t *testing.T) {
		reg, backends, err := buildCustody([]config.ContractConfig{
			{Address: testNFT.Hex(), Kind: "erc721"},
			{Address: testEdition.Hex(), Kind: "erc1155"},
		})
		require.NoError(t, err)

		unique, err := reg.AdapterFor(testNFT)
		require.NoError(t, err)
		assert.Equal(t, domain.KindUnique, unique.Kind())

		fungible, err := reg.AdapterFor(testEdition)
		require.NoError(t, err)
		assert.Equal(t, domain.KindFungible, fungible.Kind())

		assert.Contains(t, backends.Unique, testNFT)
		assert.Contains(t, backends.Fungible, testEdition)
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		_, _, err := buildCustody([]config.ContractConfig{
			{Address: testNFT.Hex(), Kind: "erc20"},
		})
		assert.Error(t, err)
	})

	t.Run("unconfigured contract cannot be listed", func(t *testing.T) {
		reg, _, err := buildCustody(nil)
		require.NoError(t, err)

		_, err = reg.AdapterFor(testNFT)
		assert.ErrorIs(t, err, custody.ErrUnknownContract)
	})
}

// TestConfiguredEngineLifecycle drives the full listing lifecycle through an
// engine assembled exactly the way Wire assembles it from configuration.
func TestConfiguredEngineLifecycle(t *testing.T) {
	eth := func(n int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
	}

	reg, backends, err := buildCustody([]config.ContractConfig{
		{Address: testNFT.Hex(), Kind: "erc721"},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := market.NewEngine(reg, market.NewLedger(), testCustody, nil, logger)
	_, err = engine.Initialize(testOwner)
	require.NoError(t, err)

	nft := backends.Unique[testNFT]
	require.NotNil(t, nft)
	require.NoError(t, nft.Mint(testSeller, 1))
	require.NoError(t, nft.SetApprovalForAll(testSeller, testCustody, true))

	listing, _, err := engine.CreateListing(market.CreateRequest{
		Contract: testNFT,
		TokenID:  1,
		Seller:   testSeller,
		Price:    eth(1),
		Kind:     domain.KindUnique,
		Quantity: 1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, engine.ListingCount())

	require.NoError(t, engine.Ledger().Deposit(testBuyer, eth(1)))
	sold, _, err := engine.BuyListedNFT(testNFT, 1, testBuyer, eth(1))
	require.NoError(t, err)
	assert.True(t, sold.Sold)
	assert.Equal(t, listing.Price, engine.Ledger().Balance(testSeller))

	holder, err := nft.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, testBuyer, holder)
}
