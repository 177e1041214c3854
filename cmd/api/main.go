package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"tenauth.org/internal/auth"
	"tenauth.org/internal/config"
	"tenauth.org/internal/httpapi"
	"tenauth.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var db *sql.DB
	var store auth.Store
	switch {
	case cfg.DB.DSN != "":
		db, err = sql.Open("pgx", cfg.DB.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
		store = auth.NewPGStore(db)
	case cfg.IsDev():
		log.Println("no database configured, using in-memory store")
		store = auth.NewInMemory()
	default:
		log.Fatal("TENAUTH_PG_DSN is required outside dev")
	}

	keychain, err := buildKeychain(cfg)
	if err != nil {
		log.Fatalf("load signing keys: %v", err)
	}

	refreshSecret := cfg.Tokens.RefreshSecret
	if refreshSecret == "" {
		if !cfg.IsDev() {
			log.Fatal("TENAUTH_TOKEN_REFRESH_SECRET is required outside dev")
		}
		log.Println("no refresh secret configured, using an ephemeral dev secret")
		refreshSecret = randomSecret()
	}

	opts := []auth.ServiceOption{
		auth.WithKeychain(keychain),
		auth.WithRefreshSecret(refreshSecret),
		auth.WithIssuer(cfg.Tokens.Issuer),
		auth.WithAccessTTL(cfg.Tokens.AccessTTL),
		auth.WithRefreshTTL(cfg.Tokens.RefreshTTL),
	}
	if cfg.Tokens.JWKSURL != "" {
		opts = append(opts, auth.WithKeySource(auth.NewJWKSClient(cfg.Tokens.JWKSURL)))
	}
	svc, err := auth.NewService(store, opts...)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	api := httpapi.New(svc, httpapi.Options{
		Version:    version,
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Cookies: httpapi.CookieSettings{
			Domain: cfg.Cookies.Domain,
			Secure: cfg.Cookies.Secure,
		},
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RatePerSecond:  cfg.Limits.PerSecond,
		RateBurst:      cfg.Limits.Burst,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting auth-service %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// buildKeychain loads configured key material, generating an ephemeral
// keypair in dev when none is present. Tokens signed with an ephemeral
// key do not survive a restart.
func buildKeychain(cfg config.Config) (*auth.Keychain, error) {
	retired, err := cfg.Tokens.RetiredPublicKeys()
	if err != nil {
		return nil, err
	}
	if cfg.Tokens.PrivateKey == "" && len(retired) == 0 {
		if cfg.IsDev() {
			log.Println("no signing key configured, generating an ephemeral dev keypair")
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				return nil, err
			}
			return auth.NewKeychainFromKey(key), nil
		}
		// Production without key material still starts; issuance
		// reports a configuration error until keys are provided.
		log.Println("warning: no signing key configured, token issuance disabled")
	}
	pems := make([][]byte, 0, len(retired))
	for _, p := range retired {
		pems = append(pems, []byte(p))
	}
	return auth.NewKeychain([]byte(cfg.Tokens.PrivateKey), pems...)
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("generate dev secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
