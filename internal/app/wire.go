package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/asset"
	s3blob "github.com/alanyoungcy/nftmarket/internal/blob/s3"
	"github.com/alanyoungcy/nftmarket/internal/cache/redis"
	"github.com/alanyoungcy/nftmarket/internal/config"
	"github.com/alanyoungcy/nftmarket/internal/crypto"
	"github.com/alanyoungcy/nftmarket/internal/custody"
	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
	"github.com/alanyoungcy/nftmarket/internal/notify"
	"github.com/alanyoungcy/nftmarket/internal/service"
	"github.com/alanyoungcy/nftmarket/internal/store/postgres"
)

// Dependencies bundles every dependency the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	ListingStore domain.ListingStore
	StateStore   domain.StateStore
	EventStore   domain.EventStore

	// Caches
	ListingCache domain.ListingCache
	RateLimiter  domain.RateLimiter
	SignalBus    domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Engine and service
	Adapters *custody.Registry
	Assets   *AssetBackends
	Engine   *market.Engine
	Service  *service.ListingService

	// Notifications
	Notifier *notify.Notifier

	// Custody signer; nil in demo mode without a key.
	Signer *crypto.Signer
}

// needsS3 returns true for modes that require object storage.
func needsS3(cfg *config.Config) bool {
	return cfg.Mode == "archive" || cfg.Archive.Enabled
}

// AssetBackends holds the token contract backends behind the custody
// registry, keyed by contract address. They are exposed so operators and
// tests can seed ownership and approvals.
type AssetBackends struct {
	Unique   map[common.Address]*asset.Token721
	Fungible map[common.Address]*asset.Token1155
}

// buildCustody registers a custody adapter for every configured token
// contract. A contract left out of the configuration cannot be listed.
func buildCustody(contracts []config.ContractConfig) (*custody.Registry, *AssetBackends, error) {
	reg := custody.NewRegistry()
	backends := &AssetBackends{
		Unique:   make(map[common.Address]*asset.Token721),
		Fungible: make(map[common.Address]*asset.Token1155),
	}

	for _, c := range contracts {
		addr := common.HexToAddress(c.Address)
		switch strings.ToLower(c.Kind) {
		case "erc721":
			token := asset.NewToken721(addr)
			backends.Unique[addr] = token
			reg.Register(addr, custody.NewUniqueAdapter(token))
		case "erc1155":
			token := asset.NewToken1155(addr)
			backends.Fungible[addr] = token
			reg.Register(addr, custody.NewFungibleAdapter(token))
		default:
			return nil, nil, fmt.Errorf("contract %s: unknown kind %q", c.Address, c.Kind)
		}
	}
	return reg, backends, nil
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	adapters, backends, err := buildCustody(cfg.Engine.Contracts)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: custody registry: %w", err)
	}
	if len(cfg.Engine.Contracts) == 0 {
		logger.Warn("no token contracts configured; listing operations will be rejected")
	}

	deps := &Dependencies{
		Adapters: adapters,
		Assets:   backends,
	}

	// --- Custody key and receipt signer ---
	if cfg.Custody.PrivateKey != "" || cfg.Custody.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Custody.PrivateKey,
			EncryptedKeyPath: cfg.Custody.EncryptedKeyPath,
			KeyPassword:      cfg.Custody.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: custody key: %w", err)
		}
		signer, err := crypto.NewSigner(keyHex, int(cfg.Engine.ChainID))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}
		deps.Signer = signer
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	// Run migrations if enabled.
	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.ListingStore = postgres.NewListingStore(pool)
	deps.StateStore = postgres.NewStateStore(pool)
	deps.EventStore = postgres.NewEventStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.ListingCache = redis.NewListingCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (only when archival is configured) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, postgres.NewEventStore(pool), logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Engine and service ---
	var engineSigner market.ReceiptSigner
	var custodyAccount common.Address
	if deps.Signer != nil {
		engineSigner = deps.Signer
		custodyAccount = deps.Signer.Address()
	}

	deps.Engine = market.NewEngine(deps.Adapters, market.NewLedger(), custodyAccount, engineSigner, logger)
	deps.Service = service.NewListingService(
		deps.Engine,
		deps.ListingStore,
		deps.StateStore,
		deps.EventStore,
		deps.ListingCache,
		deps.SignalBus,
		deps.Notifier,
		logger,
	)

	if err := deps.Service.Boot(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: boot: %w", err)
	}

	return deps, cleanup, nil
}
