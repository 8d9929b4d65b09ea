package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// MarketplaceService defines the state and ledger methods the marketplace
// handler requires from the service layer.
type MarketplaceService interface {
	Initialize(ctx context.Context, owner common.Address) (domain.MarketplaceState, error)
	State() domain.MarketplaceState
	ListingCount(ctx context.Context) uint64
	Deposit(account common.Address, amount *big.Int) error
	Withdraw(account common.Address, amount *big.Int) error
	Balance(account common.Address) *big.Int
}

// MarketplaceHandler serves the marketplace state and ledger endpoints.
type MarketplaceHandler struct {
	marketplace MarketplaceService
	logger      *slog.Logger
}

// NewMarketplaceHandler creates a MarketplaceHandler.
func NewMarketplaceHandler(marketplace MarketplaceService, logger *slog.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplace: marketplace,
		logger:      logger,
	}
}

// marketplaceResponse is the wire shape of the marketplace singleton.
type marketplaceResponse struct {
	Owner        string `json:"owner"`
	Custody      string `json:"custody"`
	ListingCount uint64 `json:"listing_count"`
	Initialized  bool   `json:"initialized"`
}

// GetMarketplace returns the owner, custody address, and live listing count.
// GET /api/marketplace
func (h *MarketplaceHandler) GetMarketplace(w http.ResponseWriter, r *http.Request) {
	state := h.marketplace.State()
	writeJSON(w, http.StatusOK, marketplaceResponse{
		Owner:        state.Owner.Hex(),
		Custody:      state.Custody.Hex(),
		ListingCount: h.marketplace.ListingCount(r.Context()),
		Initialized:  state.Initialized,
	})
}

// initializeRequest is the one-time setup body.
type initializeRequest struct {
	Owner string `json:"owner"`
}

// Initialize performs the one-time marketplace setup.
// POST /api/marketplace/initialize
func (h *MarketplaceHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var body initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	owner, err := parseAddress(body.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner address")
		return
	}

	state, err := h.marketplace.Initialize(r.Context(), owner)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: initialize rejected",
			slog.String("owner", body.Owner),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, marketplaceResponse{
		Owner:        state.Owner.Hex(),
		Custody:      state.Custody.Hex(),
		ListingCount: state.ListingCount,
		Initialized:  state.Initialized,
	})
}

// depositRequest credits or debits a ledger account.
type depositRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// Deposit credits native currency to an account's ledger balance.
// POST /api/ledger/deposit
func (h *MarketplaceHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var body depositRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := parseAddress(body.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.marketplace.Deposit(account, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account": account.Hex(),
		"balance": h.marketplace.Balance(account).String(),
	})
}

// Withdraw debits native currency from an account's ledger balance.
// POST /api/ledger/withdraw
func (h *MarketplaceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var body depositRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := parseAddress(body.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.marketplace.Withdraw(account, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account": account.Hex(),
		"balance": h.marketplace.Balance(account).String(),
	})
}

// GetBalance returns an account's ledger balance.
// GET /api/ledger/{address}
func (h *MarketplaceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(pathParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account": account.Hex(),
		"balance": h.marketplace.Balance(account).String(),
	})
}
