// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package config loads the configuration of the mucbot command.
package config // import "mellium.im/jabberkit/cmd/mucbot/internal/config"

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"mellium.im/xmpp/jid"
)

/* #nosec */
const envPass = "MUCBOT_PASS"

// Config is the configuration of the bot.
type Config struct {
	Account  Account  `toml:"account"`
	Rooms    []Room   `toml:"rooms"`
	Storage  Storage  `toml:"storage"`
	Logging  Logging  `toml:"logging"`
	Commands Commands `toml:"commands"`
}

// Account is the account that the bot logs in to.
type Account struct {
	JID      string `toml:"jid"`
	Password string `toml:"password"`

	// Status is sent with the presence in every room.
	Status string `toml:"status"`

	// Keepalive is the interval between pings to the server.
	// Zero disables pings.
	Keepalive time.Duration `toml:"keepalive"`
}

// Room is a room that the bot joins on startup.
type Room struct {
	// JID is the room address with the nickname as its resourcepart.
	JID      string `toml:"jid"`
	Password string `toml:"password"`

	// History is the number of messages to request on join.
	History uint64 `toml:"history"`
}

// Storage configures where sightings are recorded.
type Storage struct {
	Database string `toml:"database"`
}

// Logging configures the logger.
type Logging struct {
	Level string `toml:"level"`
}

// Commands configures the ad-hoc commands offered by the bot.
type Commands struct {
	// Admins may list the joined rooms.
	// The seen command is available to everybody.
	Admins []string `toml:"admins"`
}

// Default returns the configuration used for anything that is not set in the
// file.
func Default() *Config {
	return &Config{
		Account: Account{Keepalive: 5 * time.Minute},
		Storage: Storage{Database: "mucbot.db"},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the configuration from the TOML file at path.
// If path is empty only the defaults and the environment are used.
// The password may be provided by the MUCBOT_PASS environment variable, which
// takes precedence over the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: error reading %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}
	if pass := os.Getenv(envPass); pass != "" {
		cfg.Account.Password = pass
	}
	return cfg, cfg.Validate()
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if c.Account.JID == "" {
		return errors.New("config: account jid is required")
	}
	if _, err := jid.Parse(c.Account.JID); err != nil {
		return fmt.Errorf("config: bad account jid %q: %w", c.Account.JID, err)
	}
	if c.Account.Password == "" {
		return fmt.Errorf("config: account password is required, set it in the file or %s", envPass)
	}
	for _, r := range c.Rooms {
		j, err := jid.Parse(r.JID)
		if err != nil {
			return fmt.Errorf("config: bad room jid %q: %w", r.JID, err)
		}
		if j.Localpart() == "" || j.Resourcepart() == "" {
			return fmt.Errorf("config: room jid %q must be of the form room@service/nick", r.JID)
		}
	}
	if c.Account.Keepalive < 0 {
		return errors.New("config: keepalive must not be negative")
	}
	if _, err := c.Logging.level(); err != nil {
		return err
	}
	return nil
}

func (l Logging) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: bad log level %q: %w", l.Level, err)
	}
	return lvl, nil
}

// Level returns the configured log level.
// It defaults to info if the level is not valid.
func (c *Config) Level() slog.Level {
	lvl, err := c.Logging.level()
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// IsAdmin reports whether j is listed as an administrator.
// Only the bare address is compared.
func (c *Config) IsAdmin(j jid.JID) bool {
	bare := j.Bare()
	for _, a := range c.Commands.Admins {
		admin, err := jid.Parse(a)
		if err == nil && admin.Bare().Equal(bare) {
			return true
		}
	}
	return false
}
