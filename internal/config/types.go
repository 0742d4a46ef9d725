package config

// StoreBackend selects the record store implementation.
type StoreBackend string

const (
	StoreSQLite StoreBackend = "sqlite"
	StoreMemory StoreBackend = "memory"
)

// Config is the top-level sitetrace configuration, corresponding to
// sitetrace.yml.
type Config struct {
	ListenAddr  string           `yaml:"listen_addr" koanf:"listen_addr"`
	Env         string           `yaml:"env" koanf:"env"`
	DBPath      string           `yaml:"db_path" koanf:"db_path"`
	Store       StoreBackend     `yaml:"store" koanf:"store"`
	CORSOrigins []string         `yaml:"cors_origins" koanf:"cors_origins"`
	Escalation  EscalationConfig `yaml:"escalation" koanf:"escalation"`
	SeedDev     bool             `yaml:"seed_dev" koanf:"seed_dev"`
}

// EscalationConfig controls the background CAPA escalation sweep.
type EscalationConfig struct {
	Enabled         bool `yaml:"enabled" koanf:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes" koanf:"interval_minutes"`
}

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		Env:        "dev",
		DBPath:     "./data/sitetrace.db",
		Store:      StoreSQLite,
		Escalation: EscalationConfig{
			Enabled:         true,
			IntervalMinutes: 60,
		},
	}
}
