package fivehundred

import (
	"fmt"
	"sync"

	"gametable/pkg/deck"
)

// GameName identifies which ruleset a table is running. Five Hundred is the
// only ruleset this module ships, but the registry is shaped so a second
// game can register alongside it without touching the table manager.
type GameName string

const FiveHundred GameName = "five_hundred"

// BotStrategyKind distinguishes between bot difficulty/behavior profiles
// registered for a given game.
type BotStrategyKind string

const BotStrategyRandom BotStrategyKind = "random"

// Bundle groups everything the table manager needs for one game name:
// an engine factory, the command/config parsers that turn wire payloads
// into typed values, and the bot strategies available for that game.
type Bundle struct {
	NewEngine    func(shuffler deck.Shuffler) Engine
	ParseCommand func(kind string, seat Seat, raw map[string]any) (Command, error)
	ParseConfig  func(raw map[string]any) (GameConfig, error)
	BotStrategy  map[BotStrategyKind]BotStrategy
}

// Registry is a process-wide map from GameName to its Bundle, mirroring the
// rules-engine registry pattern (lazily-initialized singleton, safe for
// concurrent reads) but keyed by game name and bundling parsers alongside
// the engine, matching how the originating system's per-game registries
// were actually split out (engine, command parser, config parser, bot
// strategy all separately keyed by game name).
type Registry struct {
	mu      sync.RWMutex
	bundles map[GameName]Bundle
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry, registering Five
// Hundred's bundle on first use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = &Registry{bundles: make(map[GameName]Bundle)}
		defaultRegistry.Register(FiveHundred, FiveHundredBundle())
	})
	return defaultRegistry
}

// Register adds a bundle under name, replacing any existing registration.
func (r *Registry) Register(name GameName, bundle Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles[name] = bundle
}

// Get looks up the bundle for name.
func (r *Registry) Get(name GameName) (Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bundles[name]
	if !ok {
		return Bundle{}, fmt.Errorf("no game registered with name %q", name)
	}
	return b, nil
}

// FiveHundredBundle builds the Bundle for this package's ruleset.
func FiveHundredBundle() Bundle {
	return Bundle{
		NewEngine:    NewEngine,
		ParseCommand: ParseCommand,
		ParseConfig:  ParseGameConfig,
		BotStrategy: map[BotStrategyKind]BotStrategy{
			BotStrategyRandom: RandomBotStrategy{},
		},
	}
}
