package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/asset"
	"github.com/alanyoungcy/nftmarket/internal/custody"
	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
)

var (
	ownerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	sellerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	buyerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	custodyAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	erc721Addr  = common.HexToAddress("0x0000000000000000000000000000000000000721")
	erc1155Addr = common.HexToAddress("0x0000000000000000000000000000000000001155")
)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// engineService adapts a bare engine to the handler service interfaces for
// tests that do not need persistence.
type engineService struct {
	engine *market.Engine
}

func (s *engineService) CreateListing(_ context.Context, req market.CreateRequest) (domain.Listing, error) {
	l, _, err := s.engine.CreateListing(req)
	return l, err
}

func (s *engineService) UpdateListing(_ context.Context, contract common.Address, tokenID uint64, caller common.Address, newPrice *big.Int) (domain.Listing, error) {
	l, _, err := s.engine.UpdateListing(contract, tokenID, caller, newPrice)
	return l, err
}

func (s *engineService) PauseUnpauseListing(_ context.Context, contract common.Address, tokenID uint64, caller common.Address, pause bool) (domain.Listing, error) {
	l, _, err := s.engine.PauseUnpauseListing(contract, tokenID, caller, pause)
	return l, err
}

func (s *engineService) BuyListedNFT(_ context.Context, contract common.Address, tokenID uint64, buyer common.Address, value *big.Int) (domain.Listing, error) {
	l, _, err := s.engine.BuyListedNFT(contract, tokenID, buyer, value)
	return l, err
}

func (s *engineService) RemoveListing(_ context.Context, contract common.Address, tokenID uint64, caller common.Address) (domain.Listing, error) {
	l, _, err := s.engine.RemoveListing(contract, tokenID, caller)
	return l, err
}

func (s *engineService) GetListing(_ context.Context, contract common.Address, tokenID uint64) (domain.Listing, error) {
	return s.engine.Listing(contract, tokenID)
}

func (s *engineService) ListLive(_ context.Context, _ domain.ListOpts) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, l := range s.engine.Listings() {
		if l.Live() {
			out = append(out, l)
		}
	}
	return out, nil
}

type fixture struct {
	mux      *http.ServeMux
	engine   *market.Engine
	nft      *asset.Token721
	editions *asset.Token1155
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	nft := asset.NewToken721(erc721Addr)
	editions := asset.NewToken1155(erc1155Addr)
	reg := custody.NewRegistry()
	reg.Register(erc721Addr, custody.NewUniqueAdapter(nft))
	reg.Register(erc1155Addr, custody.NewFungibleAdapter(editions))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := market.NewEngine(reg, market.NewLedger(), custodyAddr, nil, logger)
	_, err := engine.Initialize(ownerAddr)
	require.NoError(t, err)

	h := NewListingHandler(&engineService{engine: engine}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/listings", h.CreateListing)
	mux.HandleFunc("GET /api/listings", h.ListListings)
	mux.HandleFunc("GET /api/listings/{contract}/{id}", h.GetListing)
	mux.HandleFunc("PATCH /api/listings/{contract}/{id}/price", h.UpdatePrice)
	mux.HandleFunc("POST /api/listings/{contract}/{id}/pause", h.Pause)
	mux.HandleFunc("POST /api/listings/{contract}/{id}/buy", h.Buy)
	mux.HandleFunc("DELETE /api/listings/{contract}/{id}", h.Remove)

	return &fixture{mux: mux, engine: engine, nft: nft, editions: editions}
}

func (f *fixture) mintAndApprove(t *testing.T, tokenID uint64) {
	t.Helper()
	require.NoError(t, f.nft.Mint(sellerAddr, tokenID))
	require.NoError(t, f.nft.Approve(sellerAddr, custodyAddr, tokenID))
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) create(t *testing.T, tokenID uint64, price string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, "/api/listings", createListingRequest{
		Contract: erc721Addr.Hex(),
		TokenID:  tokenID,
		Seller:   sellerAddr.Hex(),
		Price:    price,
		Kind:     "erc721",
		Quantity: 1,
	})
}

func TestCreateListingEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := newFixture(t)
		f.mintAndApprove(t, 1)

		rec := f.create(t, 1, eth(1).String())
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp listingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, sellerAddr.Hex(), resp.Seller)
		assert.Equal(t, eth(1).String(), resp.Price)
		assert.Equal(t, "erc721", resp.Kind)
	})

	t.Run("duplicate key conflicts", func(t *testing.T) {
		// A fungible partial listing leaves the seller holding enough units
		// to pass the ownership check, so the second create reaches the
		// duplicate-key precondition.
		f := newFixture(t)
		require.NoError(t, f.editions.Mint(sellerAddr, 1, 5))
		require.NoError(t, f.editions.SetApprovalForAll(sellerAddr, custodyAddr, true))

		req := createListingRequest{
			Contract: erc1155Addr.Hex(),
			TokenID:  1,
			Seller:   sellerAddr.Hex(),
			Price:    eth(1).String(),
			Kind:     "erc1155",
			Quantity: 3,
		}
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/listings", req).Code)

		req.Quantity = 2
		rec := f.do(t, http.MethodPost, "/api/listings", req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("relisting an escrowed unique token forbidden", func(t *testing.T) {
		// After the first create escrows the token with custody, the seller
		// no longer holds it: the ownership check fires before the duplicate
		// check.
		f := newFixture(t)
		f.mintAndApprove(t, 1)
		require.Equal(t, http.StatusCreated, f.create(t, 1, eth(1).String()).Code)

		rec := f.create(t, 1, eth(1).String())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unowned token forbidden", func(t *testing.T) {
		f := newFixture(t)
		// Token 9 was never minted to the seller.
		rec := f.create(t, 9, eth(1).String())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bad body rejected", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/listings", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid kind rejected", func(t *testing.T) {
		f := newFixture(t)
		f.mintAndApprove(t, 1)
		rec := f.do(t, http.MethodPost, "/api/listings", createListingRequest{
			Contract: erc721Addr.Hex(),
			TokenID:  1,
			Seller:   sellerAddr.Hex(),
			Price:    eth(1).String(),
			Kind:     "erc20",
			Quantity: 1,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetListingEndpoint(t *testing.T) {
	f := newFixture(t)
	f.mintAndApprove(t, 5)
	require.Equal(t, http.StatusCreated, f.create(t, 5, eth(2).String()).Code)

	t.Run("found", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/listings/"+erc721Addr.Hex()+"/5", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp listingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.EqualValues(t, 5, resp.TokenID)
	})

	t.Run("absent key is 404", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/listings/"+erc721Addr.Hex()+"/404", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad contract address is 400", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/listings/nothex/5", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdatePriceEndpoint(t *testing.T) {
	f := newFixture(t)
	f.mintAndApprove(t, 2)
	require.Equal(t, http.StatusCreated, f.create(t, 2, eth(1).String()).Code)
	path := "/api/listings/" + erc721Addr.Hex() + "/2/price"

	t.Run("seller updates", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, path, updatePriceRequest{
			Caller: sellerAddr.Hex(),
			Price:  eth(3).String(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp listingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, eth(3).String(), resp.Price)
	})

	t.Run("non-seller forbidden", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, path, updatePriceRequest{
			Caller: buyerAddr.Hex(),
			Price:  eth(3).String(),
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestBuyEndpoint(t *testing.T) {
	f := newFixture(t)
	f.mintAndApprove(t, 3)
	require.Equal(t, http.StatusCreated, f.create(t, 3, eth(1).String()).Code)
	path := "/api/listings/" + erc721Addr.Hex() + "/3/buy"

	t.Run("unfunded buyer gets payment required", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, buyRequest{
			Buyer: buyerAddr.Hex(),
			Value: eth(1).String(),
		})
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	})

	t.Run("funded buyer settles", func(t *testing.T) {
		require.NoError(t, f.engine.Ledger().Deposit(buyerAddr, eth(2)))

		rec := f.do(t, http.MethodPost, path, buyRequest{
			Buyer: buyerAddr.Hex(),
			Value: eth(1).String(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp listingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Sold)
	})

	t.Run("second buy conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, buyRequest{
			Buyer: buyerAddr.Hex(),
			Value: eth(1).String(),
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestRemoveEndpoint(t *testing.T) {
	f := newFixture(t)
	f.mintAndApprove(t, 4)
	require.Equal(t, http.StatusCreated, f.create(t, 4, eth(1).String()).Code)
	path := "/api/listings/" + erc721Addr.Hex() + "/4"

	t.Run("non-seller forbidden", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, path, removeRequest{Caller: buyerAddr.Hex()})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("seller removes", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, path, removeRequest{Caller: sellerAddr.Hex()})
		require.Equal(t, http.StatusOK, rec.Code)

		owner, err := f.nft.OwnerOf(4)
		require.NoError(t, err)
		assert.Equal(t, sellerAddr, owner)
	})
}

func TestPauseEndpoint(t *testing.T) {
	f := newFixture(t)
	f.mintAndApprove(t, 6)
	require.Equal(t, http.StatusCreated, f.create(t, 6, eth(1).String()).Code)
	pausePath := "/api/listings/" + erc721Addr.Hex() + "/6/pause"
	buyPath := "/api/listings/" + erc721Addr.Hex() + "/6/buy"

	rec := f.do(t, http.MethodPost, pausePath, pauseRequest{Caller: sellerAddr.Hex(), Paused: true})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, f.engine.Ledger().Deposit(buyerAddr, eth(2)))
	rec = f.do(t, http.MethodPost, buyPath, buyRequest{Buyer: buyerAddr.Hex(), Value: eth(1).String()})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, pausePath, pauseRequest{Caller: sellerAddr.Hex(), Paused: false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, buyPath, buyRequest{Buyer: buyerAddr.Hex(), Value: eth(1).String()})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListListingsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.mintAndApprove(t, 10)
	f.mintAndApprove(t, 11)
	require.Equal(t, http.StatusCreated, f.create(t, 10, eth(1).String()).Code)
	require.Equal(t, http.StatusCreated, f.create(t, 11, eth(2).String()).Code)

	rec := f.do(t, http.MethodGet, "/api/listings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listListingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Listings, 2)
}
