package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Feed struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Region string `yaml:"region"`
}

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
		LogMode string `yaml:"log_mode"` // dev | prod
	} `yaml:"app"`

	Run struct {
		Concurrency           int  `yaml:"concurrency"`
		AdapterTimeoutSeconds int  `yaml:"adapter_timeout_seconds"`
		Persist               bool `yaml:"persist"`
	} `yaml:"run"`

	Fetch struct {
		MaxAttempts    int     `yaml:"max_attempts"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		HostRatePerSec float64 `yaml:"host_rate_per_sec"`
		HostBurst      int     `yaml:"host_burst"`
	} `yaml:"fetch"`

	Storage struct {
		Driver      string `yaml:"driver"` // sqlite | postgres | none
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"storage"`

	Filters struct {
		Keywords []string `yaml:"keywords"`
	} `yaml:"filters"`

	Sources struct {
		SAMGov struct {
			Enabled        bool   `yaml:"enabled"`
			BaseURL        string `yaml:"base_url"`
			PageSize       int    `yaml:"page_size"`
			MaxPages       int    `yaml:"max_pages"`
			KeyringAccount string `yaml:"keyring_account"`
		} `yaml:"samgov"`

		BidNet struct {
			Enabled bool     `yaml:"enabled"`
			BaseURL string   `yaml:"base_url"`
			Regions []string `yaml:"regions"` // portal region slugs, e.g. "virginia"
		} `yaml:"bidnet"`

		TXSmartBuy struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"txsmartbuy"`

		GovFeeds struct {
			Enabled bool   `yaml:"enabled"`
			Feeds   []Feed `yaml:"feeds"`
		} `yaml:"govfeeds"`
	} `yaml:"sources"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
