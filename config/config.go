// Package config loads runtime configuration for the ESG gateway from the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config represents runtime configuration for the gateway service.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	RPCURL          string
	ContractAddress string
	ChainID         uint64
	KeystoreDir     string
	JWTSecret       string
	JWTTTL          time.Duration
	TxPollInterval  time.Duration
	TxWaitTimeout   time.Duration
	MergeRowTimeout time.Duration
	ReconRunHour    int
	ReconRunMinute  int
	ReconReportDir  string
	SubmitPerMinute float64
	SubmitBurst     int
}

// FromEnv loads configuration from environment variables required by the
// service.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:            getEnvDefault("ESG_PORT", "8080"),
		Env:             strings.TrimSpace(os.Getenv("ESG_ENV")),
		DatabaseURL:     os.Getenv("ESG_DB_URL"),
		RPCURL:          os.Getenv("ESG_RPC_URL"),
		ContractAddress: strings.TrimSpace(os.Getenv("ESG_CONTRACT_ADDRESS")),
		KeystoreDir:     strings.TrimSpace(os.Getenv("ESG_KEYSTORE_DIR")),
		JWTSecret:       os.Getenv("ESG_JWT_SECRET"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("ESG_DB_URL is required")
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("ESG_RPC_URL is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("ESG_CONTRACT_ADDRESS is missing or not a valid address")
	}
	if cfg.KeystoreDir == "" {
		return nil, fmt.Errorf("ESG_KEYSTORE_DIR is required")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("ESG_JWT_SECRET is required")
	}

	chainID, err := parseUintEnv("ESG_CHAIN_ID", 0)
	if err != nil {
		return nil, err
	}
	if chainID == 0 {
		return nil, fmt.Errorf("ESG_CHAIN_ID is required")
	}
	cfg.ChainID = chainID

	cfg.JWTTTL, err = parseDurationEnv("ESG_JWT_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.TxPollInterval, err = parseDurationEnv("ESG_TX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.TxWaitTimeout, err = parseDurationEnv("ESG_TX_WAIT_TIMEOUT", 90*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.MergeRowTimeout, err = parseDurationEnv("ESG_MERGE_ROW_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.ReconRunHour, err = parseIntEnv("ESG_RECON_RUN_HOUR", 2)
	if err != nil {
		return nil, err
	}
	cfg.ReconRunMinute, err = parseIntEnv("ESG_RECON_RUN_MINUTE", 30)
	if err != nil {
		return nil, err
	}
	// empty disables scan report persistence
	cfg.ReconReportDir = strings.TrimSpace(os.Getenv("ESG_RECON_REPORT_DIR"))

	submitPerMinute, err := parseIntEnv("ESG_SUBMIT_PER_MINUTE", 6)
	if err != nil {
		return nil, err
	}
	cfg.SubmitPerMinute = float64(submitPerMinute)
	cfg.SubmitBurst, err = parseIntEnv("ESG_SUBMIT_BURST", 2)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func parseUintEnv(key string, fallback uint64) (uint64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}
