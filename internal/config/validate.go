package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks structural correctness of a Config. It does not reach the
// network; connectivity problems surface at pipeline start.
func Validate(cfg *Config) error {
	if cfg.Store.URI == "" {
		return errors.New("store.uri is required")
	}

	if cfg.Store.Database == "" {
		return errors.New("store.database is required")
	}

	if cfg.Store.Collection == "" {
		return errors.New("store.collection is required")
	}

	if cfg.Sheet.SpreadsheetID == "" {
		return errors.New("sheet.spreadsheet_id is required")
	}

	if len(cfg.Sheet.Columns) == 0 {
		return errors.New("at least one [[sheet.column]] is required")
	}

	seen := make(map[string]bool, len(cfg.Sheet.Columns))

	for i, col := range cfg.Sheet.Columns {
		if col.Key == "" {
			return fmt.Errorf("sheet.column[%d]: key is required", i)
		}

		if col.Header == "" {
			return fmt.Errorf("sheet.column[%d] (%s): header is required", i, col.Key)
		}

		if seen[col.Key] {
			return fmt.Errorf("sheet.column: duplicate key %q", col.Key)
		}

		seen[col.Key] = true
	}

	if !seen[cfg.Sheet.IDColumn] {
		return fmt.Errorf("sheet.id_column %q does not match any [[sheet.column]] key", cfg.Sheet.IDColumn)
	}

	if cfg.CRM.Enabled {
		if cfg.CRM.SiteID == "" || cfg.CRM.APIKey == "" {
			return errors.New("crm.site_id and crm.api_key are required when crm.enabled is true")
		}
	}

	if cfg.Sync.RetryMax < 0 {
		return errors.New("sync.retry_max must be >= 0")
	}

	for _, d := range []struct {
		key, val string
	}{
		{"store.connect_timeout", cfg.Store.ConnectTimeout},
		{"sync.stream_restart_delay", cfg.Sync.StreamRestartDelay},
		{"sync.pipeline_restart_delay", cfg.Sync.PipelineRestartDelay},
		{"sync.retry_initial_delay", cfg.Sync.RetryInitialDelay},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("%s: invalid duration %q", d.key, d.val)
		}
	}

	return nil
}

// Duration parses a duration config value that Validate has already checked.
// It panics on malformed input, so it must only be used on validated configs.
func Duration(val string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		panic(fmt.Sprintf("config: unvalidated duration %q: %v", val, err))
	}

	return d
}
