package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Admin      AdminConfig
	Chain      ChainConfig
	XAPI       XAPIConfig
	Cloudinary CloudinaryConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// AdminConfig holds the wallet allowlist for the admin console.
type AdminConfig struct {
	WalletAddresses []string
}

// ChainConfig holds the payer key and per-chain RPC endpoints.
// ProviderURLs maps chain ID to an RPC URL, parsed from
// CHAIN_PROVIDER_URLS="137=https://...,80002=https://...".
type ChainConfig struct {
	PayerPrivateKey string
	ProviderURLs    map[int64]string
}

type XAPIConfig struct {
	BearerToken string
	BaseURL     string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file, using environment")
	}
	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "8099"),
			Env:          getenv("APP_ENV", "development"),
			BaseURL:      getenv("BASE_URL", "http://localhost:8099"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DATABASE_DSN", "affily:affily@tcp(localhost:3306)/affily?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  getenv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getenv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "affily",
		},
		Admin: AdminConfig{
			WalletAddresses: splitList(os.Getenv("ADMIN_WALLET_ADDRESSES")),
		},
		Chain: ChainConfig{
			PayerPrivateKey: os.Getenv("PAYER_PRIVATE_KEY"),
			ProviderURLs:    parseProviderURLs(os.Getenv("CHAIN_PROVIDER_URLS")),
		},
		XAPI: XAPIConfig{
			BearerToken: os.Getenv("X_API_BEARER_TOKEN"),
			BaseURL:     getenv("X_API_BASE_URL", "https://api.twitter.com"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseProviderURLs(v string) map[int64]string {
	urls := make(map[int64]string)
	for _, pair := range strings.Split(v, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		chainID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			log.Printf("[config] skipping provider entry %q: bad chain id", pair)
			continue
		}
		urls[chainID] = parts[1]
	}
	return urls
}
