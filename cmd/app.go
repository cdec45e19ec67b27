package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/arneor/vault-api/config"
	"github.com/arneor/vault-api/services"
	"github.com/arneor/vault-api/utils"
)

// app is the wiring shared by the server and the maintenance commands.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	audit  *services.AuditService
	tokens *services.TokenCache
	auth   *services.AuthService
	store  services.SheetStore
	ledger *services.LedgerService
}

func loadApp(ctx context.Context, opts *RootOptions) (*app, error) {
	if err := godotenv.Load(opts.EnvFile); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.Offline {
		cfg.SpreadsheetID = ""
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	ready := false
	defer func() {
		if !ready && db != nil {
			db.Close()
		}
	}()
	if db != nil {
		if err := config.RunMigrations(db); err != nil {
			return nil, err
		}
		log.Println("✅ Audit database connected")
	}
	audit := services.NewAuditService(db)

	var key []byte
	tokenPath := cfg.TokenCachePath
	if cfg.DataEncryptionKey != "" {
		if key, err = utils.DeriveKey(cfg.DataEncryptionKey); err != nil {
			return nil, fmt.Errorf("invalid DATA_ENCRYPTION_KEY: %w", err)
		}
	} else {
		// without a key the token is never written to disk
		tokenPath = ""
	}
	tokens := services.NewTokenCache(tokenPath, key, nil)

	auth := services.NewAuthService(tokens, services.AuthConfig{
		AllowedEmails: cfg.AllowedEmails,
		JWTSecret:     cfg.JWTSecret,
		SessionTTL:    cfg.SessionTTL,
	})

	var store services.SheetStore
	if cfg.IsOffline() {
		log.Println("⚠️ SPREADSHEET_ID not set, using an in-memory spreadsheet")
		store = services.NewMemoryStore()
	} else {
		gs, err := services.NewGoogleSheetStore(ctx, cfg.SpreadsheetID, cfg.GoogleCredentials, auth.TokenSource())
		if err != nil {
			return nil, err
		}
		store = gs
	}

	ledger := services.NewLedgerService(store, services.LedgerOptions{
		Cache:        services.NewCache(cfg.CacheTTL, nil),
		Audit:        audit,
		Location:     loc,
		SeedPartners: cfg.SeedPartners,
		Catalog: services.CategoryCatalog{
			Income:  cfg.IncomeCategories,
			Expense: cfg.ExpenseCategories,
		},
	})
	auth.OnLogout(ledger.ClearCache)

	if cfg.IsOffline() {
		if _, err := ledger.InitializeSheets(ctx); err != nil {
			return nil, err
		}
	}

	ready = true
	return &app{cfg: cfg, db: db, audit: audit, tokens: tokens, auth: auth, store: store, ledger: ledger}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
