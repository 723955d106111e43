package fivehundred

// GameConfig parameterizes a single Five Hundred game instance. It is parsed
// from a generic map[string]any by ParseGameConfig so the table manager can
// stay game-agnostic (spec §9's per-game config parser registry entry).
type GameConfig struct {
	MaxRounds    int
	MinBid       int
	MaxBid       int
	GiveUpPoints int
}

// DefaultGameConfig returns the rules-mandated defaults.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		MaxRounds:    DefaultMaxRounds,
		MinBid:       MinBid,
		MaxBid:       MaxBid,
		GiveUpPoints: DefaultGiveUpPoints,
	}
}

// ParseGameConfig builds a GameConfig from loosely-typed input (e.g. JSON
// decoded into map[string]any), falling back to defaults for absent keys.
func ParseGameConfig(raw map[string]any) (GameConfig, error) {
	cfg := DefaultGameConfig()
	if raw == nil {
		return cfg, nil
	}
	if v, ok := raw["max_rounds"]; ok {
		n, err := asInt(v)
		if err != nil {
			return cfg, &RulesError{Code: "invalid_config", Message: "max_rounds: " + err.Error()}
		}
		cfg.MaxRounds = n
	}
	if v, ok := raw["min_bid"]; ok {
		n, err := asInt(v)
		if err != nil {
			return cfg, &RulesError{Code: "invalid_config", Message: "min_bid: " + err.Error()}
		}
		cfg.MinBid = n
	}
	if v, ok := raw["max_bid"]; ok {
		n, err := asInt(v)
		if err != nil {
			return cfg, &RulesError{Code: "invalid_config", Message: "max_bid: " + err.Error()}
		}
		cfg.MaxBid = n
	}
	if v, ok := raw["give_up_points"]; ok {
		n, err := asInt(v)
		if err != nil {
			return cfg, &RulesError{Code: "invalid_config", Message: "give_up_points: " + err.Error()}
		}
		cfg.GiveUpPoints = n
	}
	return cfg, nil
}

// TableConfig parameterizes the table aggregate itself, independent of any
// one game's rules (spec §4.5).
type TableConfig struct {
	AutomaticStart bool
	BotsAllowed    bool
	MinSeats       int
	MaxSeats       int
}

// DefaultTableConfig returns Five Hundred's fixed 3-seat table shape.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		AutomaticStart: true,
		BotsAllowed:    true,
		MinSeats:       MinSeats,
		MaxSeats:       MaxSeats,
	}
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, &RulesError{Code: "invalid_type", Message: "expected a number"}
	}
}
