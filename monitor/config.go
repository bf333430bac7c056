// Package monitor orchestrates the fetch, extract, compare, persist and
// notify cycle over a documentation portal.
package monitor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/docveille/compare"
	"github.com/hazyhaar/docveille/notify"
)

// ManualPage pins a page to monitor when TOC discovery is disabled or as a
// supplement to it.
type ManualPage struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// Config is the whole monitor configuration, loaded from YAML.
type Config struct {
	// BaseURL is the documentation entry page whose sidebar TOC is
	// discovered. Empty disables discovery; Pages must then be set.
	BaseURL string `yaml:"base_url"`

	// PortalHost forces browser rendering for matching hosts.
	PortalHost string `yaml:"portal_host"`

	// Pages lists manually pinned pages. With BaseURL set they act as a
	// fallback for failed discovery.
	Pages []ManualPage `yaml:"pages"`

	DBPath      string        `yaml:"db_path"`
	Concurrency int           `yaml:"concurrency"`
	Interval    time.Duration `yaml:"interval"`

	// ListenAddr enables the HTTP trigger server in serve mode.
	ListenAddr string `yaml:"listen_addr"`

	// AuthHash is a bcrypt hash; when set, mutating endpoints require the
	// matching bearer token.
	AuthHash string `yaml:"auth_hash"`

	Browser struct {
		RemoteURL       string        `yaml:"remote_url"`
		RecycleInterval time.Duration `yaml:"recycle_interval"`
	} `yaml:"browser"`

	Compare struct {
		ShrinkThreshold   float64 `yaml:"shrink_threshold"`
		MinSnapshotLength int     `yaml:"min_snapshot_length"`
		PreviewLines      int     `yaml:"preview_lines"`
	} `yaml:"compare"`

	Discovery struct {
		MinLinks int `yaml:"min_links"`
		Retries  int `yaml:"retries"`
	} `yaml:"discovery"`

	Email notify.MailConfig `yaml:"email"`
}

func (c *Config) defaults() {
	if c.PortalHost == "" {
		c.PortalHost = "help.sap.com"
	}
	if c.DBPath == "" {
		c.DBPath = "data/docveille.db"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
}

// Validate rejects configurations that cannot monitor anything.
func (c *Config) Validate() error {
	if c.BaseURL == "" && len(c.Pages) == 0 {
		return fmt.Errorf("monitor: config needs base_url or pages")
	}
	for i, p := range c.Pages {
		if p.Name == "" || p.URL == "" {
			return fmt.Errorf("monitor: pages[%d] needs name and url", i)
		}
	}
	return nil
}

// CompareConfig maps the YAML thresholds onto the engine config, falling
// back to the engine defaults for unset fields.
func (c *Config) CompareConfig() compare.Config {
	cc := compare.DefaultConfig()
	if c.Compare.ShrinkThreshold > 0 {
		cc.ShrinkThreshold = c.Compare.ShrinkThreshold
	}
	if c.Compare.MinSnapshotLength > 0 {
		cc.MinSnapshotLength = c.Compare.MinSnapshotLength
	}
	if c.Compare.PreviewLines > 0 {
		cc.PreviewLines = c.Compare.PreviewLines
	}
	return cc
}

// LoadConfig reads, parses and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("monitor: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("monitor: parse config %s: %w", path, err)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
