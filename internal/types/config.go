package types

// Config represents the service configuration
type Config struct {
	// Meta information for the configuration
	Meta struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description,omitempty"`
		Enabled     bool   `yaml:"enabled"`
	} `yaml:"meta"`

	Server struct {
		Port         int    `yaml:"port"`
		Host         string `yaml:"host"`
		ReadTimeout  int    `yaml:"read_timeout"`
		WriteTimeout int    `yaml:"write_timeout"`
		IdleTimeout  int    `yaml:"idle_timeout"`
		// ExternalURL is the base URL under which the webhook callback is
		// reachable from outside. Must be https unless a cloudhook is set.
		ExternalURL string `yaml:"external_url"`
	} `yaml:"server"`

	Cloud struct {
		// CloudhookURL is a relayed callback URL provided by a cloud
		// service when no direct HTTPS endpoint is reachable.
		CloudhookURL       string `yaml:"cloudhook_url"`
		ActiveSubscription bool   `yaml:"active_subscription"`
	} `yaml:"cloud"`

	OAuth struct {
		// Application credentials used for the interactive Gmail consent
		// flow. Per-account o365 credentials are collected by the wizard
		// instead.
		GmailClientID     string `yaml:"gmail_client_id"`
		GmailClientSecret string `yaml:"gmail_client_secret"`
	} `yaml:"oauth"`

	Storage struct {
		// EntriesDir holds one YAML file per configured mail account.
		EntriesDir string `yaml:"entries_dir"`
	} `yaml:"storage"`

	Workers struct {
		// PoolSize bounds the number of concurrent blocking calls
		// (IMAP logins, token requests, HTTPS exchanges).
		PoolSize int `yaml:"pool_size"`
	} `yaml:"workers"`

	Logging struct {
		Level           string `yaml:"level"`
		Format          string `yaml:"format"`
		Output          string `yaml:"output"`
		FilePath        string `yaml:"file_path"`
		IncludeCaller   bool   `yaml:"include_caller"`
		RedactSensitive bool   `yaml:"redact_sensitive"`
	} `yaml:"logging"`
}
