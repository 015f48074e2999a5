package config

import "os"

// Environment variable names for overrides. Credentials are the values most
// commonly supplied via environment rather than the config file.
const (
	EnvConfig     = "SHEETSYNC_CONFIG"
	EnvStoreURI   = "SHEETSYNC_STORE_URI"
	EnvSheetToken = "SHEETSYNC_SHEET_TOKEN"
	EnvCRMAPIKey  = "SHEETSYNC_CRM_API_KEY"
	EnvListenAddr = "SHEETSYNC_LISTEN_ADDR"
)

// ApplyEnvOverrides overwrites config fields from environment variables.
// Only set variables are applied; empty values are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvStoreURI); v != "" {
		cfg.Store.URI = v
	}

	if v := os.Getenv(EnvSheetToken); v != "" {
		cfg.Sheet.Token = v
	}

	if v := os.Getenv(EnvCRMAPIKey); v != "" {
		cfg.CRM.APIKey = v
	}

	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Server.ListenAddr = v
	}
}
