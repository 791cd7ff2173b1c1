// Package config holds the order bot configuration on top of the core settings.
package config

import (
	"errors"
	"fmt"
	"strings"

	coreconfig "github.com/xojiakbarxolboyev/telegrambot/core/config"
	coredatabase "github.com/xojiakbarxolboyev/telegrambot/core/database"
)

// Storage drivers.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

// BotConfig describes the channel and operator contacts.
type BotConfig struct {
	// Channel is "@username" or a numeric chat id; empty disables the subscription gate.
	Channel string `yaml:"channel" envconfig:"CHANNEL"`
	// ChannelURL is the join link; derived from an @username when empty.
	ChannelURL string `yaml:"channel_url" envconfig:"CHANNEL_URL"`
	// NotifyID receives a copy of every order notification; 0 disables it.
	NotifyID      int64  `yaml:"notify_id" envconfig:"NOTIFY_ID"`
	AdminUsername string `yaml:"admin_username" envconfig:"ADMIN_USERNAME"`
}

// CardConfig is the payment destination shown on payment prompts.
type CardConfig struct {
	Number string `yaml:"number" envconfig:"CARD_NUMBER"`
	Holder string `yaml:"holder" envconfig:"CARD_HOLDER"`
}

// PriceRange is an inclusive range in so'm.
type PriceRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// PricesConfig holds one range per paid flow.
type PricesConfig struct {
	Slide      PriceRange `yaml:"slide"`
	ImageVideo PriceRange `yaml:"image_video"`
	TextImage  PriceRange `yaml:"text_image"`
	Video      PriceRange `yaml:"video"`
}

// StorageConfig selects the Record Store backend.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Path   string `yaml:"path" envconfig:"DATA_FILE"`
}

// HTTPConfig configures the health endpoint listener; empty Listen disables it.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Bot      BotConfig           `yaml:"bot"`
	Card     CardConfig          `yaml:"card"`
	Prices   PricesConfig        `yaml:"prices"`
	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
	HTTP     HTTPConfig          `yaml:"http"`

	// Texts overrides user-visible strings by key.
	Texts map[string]string `yaml:"texts" ignored:"true"`
	// SeedTopics are added at startup for numbers that are not stored yet.
	SeedTopics map[int64]string `yaml:"seed_topics" ignored:"true"`
}

// CoreConfig exposes the embedded framework settings.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Default price ranges.
var (
	DefaultSlidePrice      = PriceRange{Min: 20000, Max: 35000}
	DefaultImageVideoPrice = PriceRange{Min: 15000, Max: 25000}
	DefaultTextImagePrice  = PriceRange{Min: 5000, Max: 10000}
	DefaultVideoPrice      = PriceRange{Min: 25000, Max: 40000}
)

const defaultDataFile = "data.json"

// Load reads YAML and environment, then validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	c.Bot.Channel = strings.TrimSpace(c.Bot.Channel)
	if c.Bot.ChannelURL == "" && strings.HasPrefix(c.Bot.Channel, "@") {
		c.Bot.ChannelURL = "https://t.me/" + strings.TrimPrefix(c.Bot.Channel, "@")
	}
	if c.Bot.Channel != "" && c.Bot.ChannelURL == "" {
		return errors.New("bot.channel_url is required when bot.channel is a numeric id")
	}
	c.Bot.AdminUsername = strings.TrimPrefix(strings.TrimSpace(c.Bot.AdminUsername), "@")

	for _, p := range []struct {
		name string
		r    *PriceRange
		def  PriceRange
	}{
		{"slide", &c.Prices.Slide, DefaultSlidePrice},
		{"image_video", &c.Prices.ImageVideo, DefaultImageVideoPrice},
		{"text_image", &c.Prices.TextImage, DefaultTextImagePrice},
		{"video", &c.Prices.Video, DefaultVideoPrice},
	} {
		if *p.r == (PriceRange{}) {
			*p.r = p.def
		}
		if p.r.Min <= 0 || p.r.Max < p.r.Min {
			return fmt.Errorf("prices.%s: invalid range [%d, %d]", p.name, p.r.Min, p.r.Max)
		}
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "", DriverJSON:
		c.Storage.Driver = DriverJSON
		if c.Storage.Path == "" {
			c.Storage.Path = defaultDataFile
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database.host and database.name are required for the postgres driver")
		}
		if c.Database.Port == "" {
			c.Database.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: json, postgres", c.Storage.Driver)
	}
	return nil
}

// ContactURL returns the operator's t.me link, empty when no username is set.
func (c *Config) ContactURL() string {
	if c.Bot.AdminUsername == "" {
		return ""
	}
	return "https://t.me/" + c.Bot.AdminUsername
}
