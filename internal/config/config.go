// Package config loads settings for the store API and the storefront client from the environment.
// Values are read once at start-up, after an optional .env file has been applied.
package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	// GatewayModeMock selects the in-memory backend.
	GatewayModeMock = "mock"
	// GatewayModeHTTP selects the network client talking to the store API.
	GatewayModeHTTP = "http"

	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"
)

var (
	LogLevel         string
	ServerRunAddress string
	DatabaseURI      string
	JWTSecret        string
	OrderSettleDelay time.Duration

	GatewayMode    string
	APIBaseURL     string
	MockLatency    bool
	TokenStore     string
	TokenStorePath string
	RedisAddress   string
	RedisPassword  string
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	LogLevel = getEnv("LOG_LEVEL", "info")
	ServerRunAddress = getEnv("SERVER_RUN_ADDRESS", "0.0.0.0:8080")
	DatabaseURI = getEnv("DATABASE_URI", "host=db user=postgres password=password dbname=dlc_store sslmode=disable")
	JWTSecret = getEnv("JWT_SECRET", "supersecretkey")

	settleDelay, err := time.ParseDuration(getEnv("ORDER_SETTLE_DELAY", "3s"))
	if err != nil {
		log.Printf("Invalid ORDER_SETTLE_DELAY, using 3s: %s", err)
		settleDelay = 3 * time.Second
	}
	OrderSettleDelay = settleDelay

	GatewayMode = getEnv("GATEWAY_MODE", GatewayModeMock)
	APIBaseURL = getEnv("API_BASE_URL", "http://localhost:8080")
	MockLatency = getEnv("MOCK_LATENCY", "on") != "off"
	TokenStore = getEnv("TOKEN_STORE", TokenStoreFile)
	TokenStorePath = getEnv("TOKEN_STORE_PATH", defaultTokenStorePath())
	RedisAddress = getEnv("REDIS_ADDRESS", "localhost:6379")
	RedisPassword = getEnv("REDIS_PASSWORD", "")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func defaultTokenStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".dlc_store_session.json"
	}
	return filepath.Join(dir, "dlc_store", "session.json")
}
