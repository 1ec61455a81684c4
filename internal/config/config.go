package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL  string `yaml:"ttl"`
		File string `yaml:"file"`
	} `yaml:"questions"`
	Poll struct {
		SessionID       string `yaml:"sessionId"`
		ClosePolicy     string `yaml:"closePolicy"`
		DiscloseCorrect *bool  `yaml:"discloseCorrect"`
	} `yaml:"poll"`
	Chat struct {
		MaxLength int `yaml:"maxLength"`
	} `yaml:"chat"`
}

// Load reads YAML config from path. A missing file at the default location
// yields the zero config so the server can start with in-memory defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultPath is used when neither --config nor CONFIG_PATH is set.
const DefaultPath = "config/config.yaml"

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// DiscloseCorrect reports whether newQuestion events reveal the answer; on by default.
func (c Config) DiscloseCorrect() bool {
	if c.Poll.DiscloseCorrect == nil {
		return true
	}
	return *c.Poll.DiscloseCorrect
}

// ChatMaxLength returns the chat limit in runes, 500 unless configured.
func (c Config) ChatMaxLength() int {
	if c.Chat.MaxLength <= 0 {
		return 500
	}
	return c.Chat.MaxLength
}
