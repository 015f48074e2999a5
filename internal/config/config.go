// Package config implements TOML configuration loading, validation, and
// environment overrides for sheetsync. The override chain is
// defaults -> config file -> environment variables -> CLI flags, with
// CLI flags applied by the command layer.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Store   StoreConfig   `toml:"store"`
	Sheet   SheetConfig   `toml:"sheet"`
	CRM     CRMConfig     `toml:"crm"`
	Sync    SyncConfig    `toml:"sync"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

// StoreConfig identifies the primary document store and the collection
// whose change stream drives the pipeline.
type StoreConfig struct {
	URI            string `toml:"uri"`
	Database       string `toml:"database"`
	Collection     string `toml:"collection"`
	ConnectTimeout string `toml:"connect_timeout"`
}

// SheetConfig identifies the tabular sink: which spreadsheet, which sheet
// within it, and the ordered column schema that defines both the header row
// and the positional encoding of documents. Column order is stable for the
// lifetime of a sheet — reordering requires a full re-export.
type SheetConfig struct {
	SpreadsheetID string   `toml:"spreadsheet_id"`
	SheetName     string   `toml:"sheet_name"`
	Token         string   `toml:"token"`
	BaseURL       string   `toml:"base_url"`
	IDColumn      string   `toml:"id_column"`
	Columns       []Column `toml:"column"`
}

// Column maps a document field key to a display header.
type Column struct {
	Key    string `toml:"key"`
	Header string `toml:"header"`
}

// CRMConfig identifies the profile sink. SiteID and APIKey form the basic
// auth credential. PhoneField names the document field holding the phone
// number that keys profiles on the CRM side.
type CRMConfig struct {
	Enabled    bool   `toml:"enabled"`
	BaseURL    string `toml:"base_url"`
	SiteID     string `toml:"site_id"`
	APIKey     string `toml:"api_key"`
	PhoneField string `toml:"phone_field"`
}

// SyncConfig controls pipeline behavior: snapshot bootstrap, restart delays,
// per-call retry bounds, and the optional event journal.
type SyncConfig struct {
	Snapshot             bool   `toml:"snapshot"`
	StreamRestartDelay   string `toml:"stream_restart_delay"`
	PipelineRestartDelay string `toml:"pipeline_restart_delay"`
	RetryMax             int    `toml:"retry_max"`
	RetryInitialDelay    string `toml:"retry_initial_delay"`
	JournalPath          string `toml:"journal_path"`
}

// ServerConfig controls the liveness HTTP listener.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `toml:"level"`
}
