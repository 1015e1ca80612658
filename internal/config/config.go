// Package config loads the engine's own narrow configuration: risk
// limits, command timeout, ingress queue sizes, and the registry of
// venues and symbols it trades. The persistence retry policy is not
// configurable here. Trading-node bootstrap (credentials,
// process supervision) stays out of scope and is not modeled here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/risk"
)

// SymbolConfig names one tradable instrument and its decimal scale.
type SymbolConfig struct {
	Symbol     string    `json:"symbol"`
	Venue      string    `json:"venue"`
	PriceScale ids.Scale `json:"priceScale"`
	QtyScale   ids.Scale `json:"qtyScale"`
}

// FileConfig mirrors the on-disk JSON layout.
type FileConfig struct {
	TraderID         string            `json:"traderId"`
	Symbols          []SymbolConfig    `json:"symbols"`
	Risk             risk.Config       `json:"risk"`
	CommandTimeout   time.Duration     `json:"commandTimeout"`
	CommandQueueSize int               `json:"commandQueueSize"`
	EventQueueSize   int               `json:"eventQueueSize"`
}

// Loaded is the resolved, validated configuration ready for use by
// cmd/execd.
type Loaded struct {
	TraderID         ids.TraderId
	Symbols          []SymbolConfig
	Risk             risk.Config
	CommandTimeout   time.Duration
	CommandQueueSize int
	EventQueueSize   int
}

const (
	defaultCommandTimeout   = 5 * time.Second
	defaultCommandQueueSize = 256
	defaultEventQueueSize   = 1024
)

// Load reads and validates a JSON config file.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	traderID, err := ids.NewTraderId(cfg.TraderID)
	if err != nil {
		return Loaded{}, fmt.Errorf("config: traderId: %w", err)
	}

	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	cmdQueue := cfg.CommandQueueSize
	if cmdQueue <= 0 {
		cmdQueue = defaultCommandQueueSize
	}
	evtQueue := cfg.EventQueueSize
	if evtQueue <= 0 {
		evtQueue = defaultEventQueueSize
	}

	return Loaded{
		TraderID:         traderID,
		Symbols:          cfg.Symbols,
		Risk:             cfg.Risk,
		CommandTimeout:   timeout,
		CommandQueueSize: cmdQueue,
		EventQueueSize:   evtQueue,
	}, nil
}
