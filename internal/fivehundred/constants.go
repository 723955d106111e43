package fivehundred

// Constants fixed by the Five Hundred rules (spec §6).
const (
	MinSeats = 3
	MaxSeats = 3

	CardsInStartingHand = 7
	CardsToTake         = 3 // kitty size
	EmptyHandSize       = 0

	BidStep = 5
	MinBid  = 60
	MaxBid  = 200

	NotAllowedToBidThreshold = 1000 // at/above this summary, only passing bids are legal
	MustBidThreshold         = 880  // at/above this summary, non-declarer round points are forfeited to 0

	LargeMarriagePoints = 40 // trump-suit marriage
	SmallMarriagePoints = 20 // non-trump marriage, only after one has already been announced

	GameStartingPoints = 500 // summary counts down from here; reaching <=0 wins

	DefaultGiveUpPoints = 50
	DefaultMaxRounds    = 100
)
