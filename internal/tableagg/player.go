package tableagg

import "gametable/internal/fivehundred"

// Player occupies one seat at a table: either a human (UserID set, BotKind
// empty) or a bot (UserID nil, BotKind set).
type Player struct {
	PlayerID   string
	SeatNumber fivehundred.Seat
	ScreenName string
	BotKind    fivehundred.BotStrategyKind
	UserID     *string
}

// IsBot reports whether this seat is occupied by a bot rather than a human.
func (p Player) IsBot() bool { return p.UserID == nil }

