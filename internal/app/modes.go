package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/nftmarket/internal/asset"
	"github.com/alanyoungcy/nftmarket/internal/custody"
	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
	"github.com/alanyoungcy/nftmarket/internal/server"
	"github.com/alanyoungcy/nftmarket/internal/server/handler"
	"github.com/alanyoungcy/nftmarket/internal/server/ws"
)

// ServerMode runs the HTTP + WebSocket API until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	if err := a.autoInitialize(ctx, deps); err != nil {
		return fmt.Errorf("server mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode runs a single archival pass: every event older than the
// configured retention window is uploaded to object storage as JSONL batches
// and then deleted from Postgres. The process exits when the pass completes.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: object storage is not configured")
	}

	retention := a.cfg.Archive.RetentionDays
	if retention <= 0 {
		return fmt.Errorf("archive mode: archive.retention_days must be positive, got %d", retention)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retention)
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Int("retention_days", retention),
		slog.Time("cutoff", cutoff),
	)

	archived, err := deps.Archiver.ArchiveEvents(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}

	a.logger.InfoContext(ctx, "archive pass complete",
		slog.Int64("events_archived", archived),
	)
	return nil
}

// FullMode runs the HTTP API together with a periodic archival loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if err := a.autoInitialize(ctx, deps); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)

	if deps.Archiver != nil && a.cfg.Archive.RetentionDays > 0 {
		retention := a.cfg.Archive.RetentionDays
		g.Go(func() error {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					cutoff := time.Now().UTC().AddDate(0, 0, -retention)
					archived, err := deps.Archiver.ArchiveEvents(ctx, cutoff)
					if err != nil {
						a.logger.ErrorContext(ctx, "periodic archive pass failed",
							slog.String("error", err.Error()),
						)
						continue
					}
					if archived > 0 {
						a.logger.InfoContext(ctx, "periodic archive pass complete",
							slog.Int64("events_archived", archived),
							slog.Time("cutoff", cutoff),
						)
					}
				}
			}
		})
	} else {
		a.logger.InfoContext(ctx, "full mode: archival disabled (no object storage or retention configured)")
	}

	return g.Wait()
}

// autoInitialize performs the one-time marketplace initialization for a fresh
// deployment when engine.owner_address is configured. Once initialized the
// configured owner is ignored.
func (a *App) autoInitialize(ctx context.Context, deps *Dependencies) error {
	if deps.Service.State().Initialized {
		return nil
	}
	if a.cfg.Engine.OwnerAddress == "" {
		a.logger.WarnContext(ctx, "marketplace not initialized and engine.owner_address not set; waiting for POST /api/marketplace/initialize")
		return nil
	}

	owner := common.HexToAddress(a.cfg.Engine.OwnerAddress)
	state, err := deps.Service.Initialize(ctx, owner)
	if err != nil {
		return fmt.Errorf("auto initialize: %w", err)
	}
	a.logger.InfoContext(ctx, "marketplace initialized",
		slog.String("owner", state.Owner.Hex()),
		slog.String("custody", state.Custody.Hex()),
	)
	return nil
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Listings:    handler.NewListingHandler(deps.Service, a.logger),
		Marketplace: handler.NewMarketplaceHandler(deps.Service, a.logger),
		Events:      handler.NewEventHandler(deps.Service, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// Demo fixture addresses. Arbitrary constants; the demo never touches a real
// chain.
var (
	demoOwner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	demoCustody  = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	demoSeller   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	demoBuyer    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	demoNFTAddr  = common.HexToAddress("0x0000000000000000000000000000000000000721")
	demoEditions = common.HexToAddress("0x0000000000000000000000000000000000001155")
)

// DemoMode runs an end-to-end listing walkthrough against in-memory token
// contracts: initialize, list a unique token and a fungible batch, reprice,
// pause and resume, settle a purchase with overpayment, and remove a listing.
// It exercises every lifecycle operation without external dependencies.
func (a *App) DemoMode(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting demo mode (in-memory, no external services)")

	eth := func(n int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
	}

	nft := asset.NewToken721(demoNFTAddr)
	editions := asset.NewToken1155(demoEditions)

	adapters := custody.NewRegistry()
	adapters.Register(demoNFTAddr, custody.NewUniqueAdapter(nft))
	adapters.Register(demoEditions, custody.NewFungibleAdapter(editions))

	engine := market.NewEngine(adapters, market.NewLedger(), demoCustody, nil, a.logger)

	state, err := engine.Initialize(demoOwner)
	if err != nil {
		return fmt.Errorf("demo: initialize: %w", err)
	}
	a.logger.InfoContext(ctx, "marketplace initialized",
		slog.String("owner", state.Owner.Hex()),
		slog.String("custody", state.Custody.Hex()),
	)

	// Seller holds one unique token and a batch of fungible editions; both
	// contracts approve the custody account as operator.
	if err := nft.Mint(demoSeller, 7); err != nil {
		return fmt.Errorf("demo: mint unique: %w", err)
	}
	if err := editions.Mint(demoSeller, 42, 10); err != nil {
		return fmt.Errorf("demo: mint editions: %w", err)
	}
	if err := nft.SetApprovalForAll(demoSeller, demoCustody, true); err != nil {
		return fmt.Errorf("demo: approve unique: %w", err)
	}
	if err := editions.SetApprovalForAll(demoSeller, demoCustody, true); err != nil {
		return fmt.Errorf("demo: approve editions: %w", err)
	}

	// List the unique token at 2 ETH.
	unique, _, err := engine.CreateListing(market.CreateRequest{
		Contract: demoNFTAddr,
		TokenID:  7,
		Seller:   demoSeller,
		Price:    eth(2),
		Kind:     domain.KindUnique,
		Quantity: 1,
	})
	if err != nil {
		return fmt.Errorf("demo: list unique: %w", err)
	}
	a.logger.InfoContext(ctx, "unique token listed",
		slog.Uint64("token_id", unique.TokenID),
		slog.String("price_wei", unique.Price.String()),
	)

	// List 5 editions at 1 ETH for the batch.
	batch, _, err := engine.CreateListing(market.CreateRequest{
		Contract: demoEditions,
		TokenID:  42,
		Seller:   demoSeller,
		Price:    eth(1),
		Kind:     domain.KindFungible,
		Quantity: 5,
	})
	if err != nil {
		return fmt.Errorf("demo: list editions: %w", err)
	}
	a.logger.InfoContext(ctx, "edition batch listed",
		slog.Uint64("token_id", batch.TokenID),
		slog.Uint64("quantity", batch.Quantity),
	)

	// Seller reprices, pauses, then resumes the unique listing.
	if _, _, err := engine.UpdateListing(demoNFTAddr, 7, demoSeller, eth(3)); err != nil {
		return fmt.Errorf("demo: reprice: %w", err)
	}
	if _, _, err := engine.PauseUnpauseListing(demoNFTAddr, 7, demoSeller, true); err != nil {
		return fmt.Errorf("demo: pause: %w", err)
	}
	if _, _, err := engine.PauseUnpauseListing(demoNFTAddr, 7, demoSeller, false); err != nil {
		return fmt.Errorf("demo: unpause: %w", err)
	}

	// Buyer funds an internal balance and overpays; the excess accrues to
	// the custody account.
	if err := engine.Ledger().Deposit(demoBuyer, eth(5)); err != nil {
		return fmt.Errorf("demo: deposit: %w", err)
	}
	sold, _, err := engine.BuyListedNFT(demoNFTAddr, 7, demoBuyer, eth(4))
	if err != nil {
		return fmt.Errorf("demo: buy: %w", err)
	}
	newOwner, err := nft.OwnerOf(7)
	if err != nil {
		return fmt.Errorf("demo: owner after sale: %w", err)
	}
	a.logger.InfoContext(ctx, "unique token sold",
		slog.String("buyer", demoBuyer.Hex()),
		slog.String("paid_wei", eth(4).String()),
		slog.String("price_wei", sold.Price.String()),
		slog.String("new_owner", newOwner.Hex()),
		slog.String("seller_balance_wei", engine.Ledger().Balance(demoSeller).String()),
		slog.String("custody_balance_wei", engine.Ledger().Balance(demoCustody).String()),
	)

	// Seller pulls the edition batch; escrowed units return to the seller.
	if _, _, err := engine.RemoveListing(demoEditions, 42, demoSeller); err != nil {
		return fmt.Errorf("demo: remove: %w", err)
	}
	a.logger.InfoContext(ctx, "edition batch removed",
		slog.Uint64("seller_editions", editions.BalanceOf(demoSeller, 42)),
		slog.Uint64("escrowed_editions", editions.BalanceOf(demoCustody, 42)),
	)

	a.logger.InfoContext(ctx, "demo complete",
		slog.Uint64("active_listings", engine.ListingCount()),
	)
	return nil
}
