package config

// Default values for configuration options. These are the "layer 0" of the
// override chain and work for a local store without any config file beyond
// the sink identifiers and credentials.
const (
	defaultStoreURI             = "mongodb://localhost:27017"
	defaultConnectTimeout       = "5s"
	defaultSheetName            = "Sheet1"
	defaultSheetBaseURL         = "https://sheets.googleapis.com/v4"
	defaultIDColumn             = "_id"
	defaultCRMBaseURL           = "https://track.customer.io/api/v1"
	defaultPhoneField           = "phone"
	defaultStreamRestartDelay   = "5s"
	defaultPipelineRestartDelay = "15s"
	defaultRetryMax             = 5
	defaultRetryInitialDelay    = "500ms"
	defaultListenAddr           = ":8080"
	defaultLogLevel             = "info"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields retain defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			URI:            defaultStoreURI,
			ConnectTimeout: defaultConnectTimeout,
		},
		Sheet: SheetConfig{
			SheetName: defaultSheetName,
			BaseURL:   defaultSheetBaseURL,
			IDColumn:  defaultIDColumn,
		},
		CRM: CRMConfig{
			BaseURL:    defaultCRMBaseURL,
			PhoneField: defaultPhoneField,
		},
		Sync: SyncConfig{
			Snapshot:             true,
			StreamRestartDelay:   defaultStreamRestartDelay,
			PipelineRestartDelay: defaultPipelineRestartDelay,
			RetryMax:             defaultRetryMax,
			RetryInitialDelay:    defaultRetryInitialDelay,
		},
		Server: ServerConfig{
			ListenAddr: defaultListenAddr,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}
