package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/v-hunt/trunity-importer/internal/api/http"
	auth "github.com/v-hunt/trunity-importer/internal/auth/middleware"
	"github.com/v-hunt/trunity-importer/internal/config"
	"github.com/v-hunt/trunity-importer/internal/db"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/journal"
	"github.com/v-hunt/trunity-importer/internal/storage"
	"github.com/v-hunt/trunity-importer/internal/trunity"

	_ "github.com/v-hunt/trunity-importer/internal/formats/qti"
	_ "github.com/v-hunt/trunity-importer/internal/formats/sda"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Auth.HMACSecret == "" || cfg.Auth.OperatorPassHash == "" {
		log.Fatal("AUTH_HMAC_SECRET and OPERATOR_PASS_HASH are required")
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DB.Driver), cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	runs := journal.New(dbh)

	// --- Trunity ---
	client := trunity.New(trunity.Config{
		BaseURL:  cfg.Trunity.BaseURL,
		TokenURL: cfg.Trunity.TokenURL,
		ClientID: cfg.Trunity.ClientID,
		Username: cfg.Trunity.Username,
		Password: cfg.Trunity.Password,
		Timeout:  cfg.Trunity.Timeout,
	})
	if err := client.Authenticate(ctx); err != nil {
		log.Fatalf("trunity login as %q: %v", cfg.Trunity.Username, err)
	}
	env := formats.Env{Remote: client, Uploader: client, Log: log.Default()}

	deps := api.Deps{
		Auth:        auth.NewAuthService(cfg.Auth.HMACSecret, cfg.Auth.OperatorUser, cfg.Auth.OperatorPassHash),
		Runs:        runs,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	}
	switch cfg.Blob.Driver {
	case "fs":
		bs, err := storage.NewFSStore(cfg.Blob.BasePath, cfg.Blob.PublicURL)
		if err != nil {
			log.Fatalf("blob store: %v", err)
		}
		if cfg.Blob.PublicURL == "" {
			log.Printf("BLOB_PUBLIC_URL unset: media links will be file:// URLs")
		}
		env.Uploader = bs
		deps.Media = bs
	case "trunity", "":
	default:
		log.Fatalf("unsupported blob driver: %s", cfg.Blob.Driver)
	}
	deps.Env = env

	log.Printf("listening on %s (db=%s, blob=%s, formats=%v)", cfg.HTTP.Addr, cfg.DB.Driver, cfg.Blob.Driver, formats.Names())
	log.Fatal(http.ListenAndServe(cfg.HTTP.Addr, api.NewRouter(deps)))
}
