package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
)

// ListingService defines the methods the listing handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type ListingService interface {
	CreateListing(ctx context.Context, req market.CreateRequest) (domain.Listing, error)
	UpdateListing(ctx context.Context, contract common.Address, tokenID uint64, caller common.Address, newPrice *big.Int) (domain.Listing, error)
	PauseUnpauseListing(ctx context.Context, contract common.Address, tokenID uint64, caller common.Address, pause bool) (domain.Listing, error)
	BuyListedNFT(ctx context.Context, contract common.Address, tokenID uint64, buyer common.Address, value *big.Int) (domain.Listing, error)
	RemoveListing(ctx context.Context, contract common.Address, tokenID uint64, caller common.Address) (domain.Listing, error)
	GetListing(ctx context.Context, contract common.Address, tokenID uint64) (domain.Listing, error)
	ListLive(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error)
}

// ListingHandler serves the listing lifecycle endpoints.
type ListingHandler struct {
	listings ListingService
	logger   *slog.Logger
}

// NewListingHandler creates a ListingHandler with the given service and logger.
func NewListingHandler(listings ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		logger:   logger,
	}
}

// listingResponse is the wire shape of one listing.
type listingResponse struct {
	Contract  string `json:"contract"`
	TokenID   uint64 `json:"token_id"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
	Kind      string `json:"kind"`
	Quantity  uint64 `json:"quantity"`
	Paused    bool   `json:"paused"`
	Sold      bool   `json:"sold"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toListingResponse(l domain.Listing) listingResponse {
	return listingResponse{
		Contract:  l.Contract.Hex(),
		TokenID:   l.TokenID,
		Seller:    l.Seller.Hex(),
		Price:     l.Price.String(),
		Kind:      l.Kind.String(),
		Quantity:  l.Quantity,
		Paused:    l.Paused,
		Sold:      l.Sold,
		CreatedAt: l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: l.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// createListingRequest is the POST /api/listings body.
type createListingRequest struct {
	Contract string `json:"contract"`
	TokenID  uint64 `json:"token_id"`
	Seller   string `json:"seller"`
	Price    string `json:"price"`
	Kind     string `json:"kind"`
	Quantity uint64 `json:"quantity"`
}

// CreateListing escrows an asset and creates its listing.
// POST /api/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var body createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contract, err := parseAddress(body.Contract)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract address")
		return
	}
	seller, err := parseAddress(body.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid seller address")
		return
	}
	price, ok := new(big.Int).SetString(body.Price, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	var kind domain.TokenKind
	switch body.Kind {
	case "erc721":
		kind = domain.KindUnique
	case "erc1155":
		kind = domain.KindFungible
	default:
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	listing, err := h.listings.CreateListing(r.Context(), market.CreateRequest{
		Contract: contract,
		TokenID:  body.TokenID,
		Seller:   seller,
		Price:    price,
		Kind:     kind,
		Quantity: body.Quantity,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: create listing rejected",
			slog.String("contract", body.Contract),
			slog.Uint64("token_id", body.TokenID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toListingResponse(listing))
}

// listListingsResponse wraps the list endpoint output with metadata.
type listListingsResponse struct {
	Listings []listingResponse `json:"listings"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ListListings returns live listings with pagination.
// GET /api/listings?limit=50&offset=0
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	listings, err := h.listings.ListLive(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list listings failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list listings")
		return
	}

	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	writeJSON(w, http.StatusOK, listListingsResponse{
		Listings: out,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

// GetListing returns a single listing by its composite key.
// GET /api/listings/{contract}/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	contract, tokenID, err := listingKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listing, err := h.listings.GetListing(r.Context(), contract, tokenID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

// updatePriceRequest is the PATCH body; caller must be the seller.
type updatePriceRequest struct {
	Caller string `json:"caller"`
	Price  string `json:"price"`
}

// UpdatePrice changes the asking price of an unsold listing.
// PATCH /api/listings/{contract}/{id}/price
func (h *ListingHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	contract, tokenID, err := listingKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	price, ok := new(big.Int).SetString(body.Price, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	listing, err := h.listings.UpdateListing(r.Context(), contract, tokenID, caller, price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

// pauseRequest is the POST pause body; caller must be the seller.
type pauseRequest struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

// Pause toggles the paused flag of an unsold listing.
// POST /api/listings/{contract}/{id}/pause
func (h *ListingHandler) Pause(w http.ResponseWriter, r *http.Request) {
	contract, tokenID, err := listingKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	listing, err := h.listings.PauseUnpauseListing(r.Context(), contract, tokenID, caller, body.Paused)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

// buyRequest is the POST buy body. Value is the attached payment in wei;
// anything at or above the asking price settles, the excess is not refunded.
type buyRequest struct {
	Buyer string `json:"buyer"`
	Value string `json:"value"`
}

// Buy settles a sale against the buyer's deposited balance.
// POST /api/listings/{contract}/{id}/buy
func (h *ListingHandler) Buy(w http.ResponseWriter, r *http.Request) {
	contract, tokenID, err := listingKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body buyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	buyer, err := parseAddress(body.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid buyer address")
		return
	}
	value, ok := new(big.Int).SetString(body.Value, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}

	listing, err := h.listings.BuyListedNFT(r.Context(), contract, tokenID, buyer, value)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: buy rejected",
			slog.String("contract", contract.Hex()),
			slog.Uint64("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

// removeRequest is the DELETE body; caller must be the seller.
type removeRequest struct {
	Caller string `json:"caller"`
}

// Remove returns the escrowed asset to the seller and frees the key.
// DELETE /api/listings/{contract}/{id}
func (h *ListingHandler) Remove(w http.ResponseWriter, r *http.Request) {
	contract, tokenID, err := listingKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body removeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	listing, err := h.listings.RemoveListing(r.Context(), contract, tokenID, caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}
