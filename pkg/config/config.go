package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// MailAccount holds the SMTP credentials and sending defaults for one
// configured account. Accounts are owned by the host configuration; the
// plugin core only resolves them by id (or picks the default).
type MailAccount struct {
	// ID is the stable identifier used by tasks and API callers to
	// reference this account.
	ID string `yaml:"id" json:"id"`

	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`

	// SenderName is the display name used in the From header. If empty,
	// the bare username address is used.
	SenderName string `yaml:"senderName" json:"senderName"`

	// SubjectPrefix is prepended to every outgoing subject, e.g. "[bot] ".
	SubjectPrefix string `yaml:"subjectPrefix" json:"subjectPrefix"`

	// Secure selects implicit TLS (typically port 465). When false the
	// dialer negotiates STARTTLS opportunistically.
	Secure bool `yaml:"secure" json:"secure"`

	// InsecureSkipVerify disables TLS certificate verification. Only for
	// internal relays with self-signed certificates.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify" json:"insecureSkipVerify"`

	IsDefault bool `yaml:"isDefault" json:"isDefault"`
}

type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TrustedProxies []string `yaml:"trustedProxies"`
}

type Storage struct {
	// DataDir is the writable directory holding tasks.json and
	// history.json. Supplied by the host process.
	DataDir string `yaml:"dataDir"`
}

type Scheduler struct {
	// TickInterval controls how often the scheduler scans for due tasks
	// (e.g. "60s"). Defaults to one minute.
	TickInterval string `yaml:"tickInterval"`
}

type Config struct {
	Server    Server        `yaml:"server"`
	Storage   Storage       `yaml:"storage"`
	Scheduler Scheduler     `yaml:"scheduler"`
	Accounts  []MailAccount `yaml:"accounts"`
}

const DefaultTickInterval = 60 * time.Second

// Load loads the plugin configuration from a file path.
// If configPath is empty, defaults to "./config.yaml".
// The config file path can also be overridden via the NAPCAT_EMAIL_CONFIG_PATH
// environment variable.
func Load(configPath ...string) (Config, error) {
	var path string

	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	} else if env := os.Getenv("NAPCAT_EMAIL_CONFIG_PATH"); env != "" {
		path = env
	} else {
		path = "./config.yaml"
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open plugin config file %s: %v", path, err)
	}

	err = yaml.Unmarshal(content, &config)
	if err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
	}
	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8199"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./data"
	}
	if c.Scheduler.TickInterval == "" {
		c.Scheduler.TickInterval = "60s"
	}
}

// TickInterval parses the configured scheduler interval, falling back to
// the default when unset or unparseable.
func (c Config) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.TickInterval)
	if err != nil || d <= 0 {
		return DefaultTickInterval
	}
	return d
}

// Account returns the mail account with the given id.
func (c Config) Account(id string) (MailAccount, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return MailAccount{}, false
}

// DefaultAccount returns the account flagged as default, or the first
// configured account when none is flagged.
func (c Config) DefaultAccount() (MailAccount, bool) {
	for _, a := range c.Accounts {
		if a.IsDefault {
			return a, true
		}
	}
	if len(c.Accounts) > 0 {
		return c.Accounts[0], true
	}
	return MailAccount{}, false
}
