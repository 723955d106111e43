package fivehundred

import "math/rand"

// BotStrategy produces the next command for a seat occupied by a bot.
type BotStrategy interface {
	CreateCommand(game Game, seat Seat) (Command, error)
}

// RandomBotStrategy bids and plays uniformly at random, with a
// pass-probability that scales with how high the bidding already is —
// grounded in the reference random-bot's exact formula.
type RandomBotStrategy struct {
	Rand *rand.Rand // nil uses the package-level default source
}

func (b RandomBotStrategy) CreateCommand(game Game, seat Seat) (Command, error) {
	switch game.Round.Phase {
	case PhaseBidding:
		return b.bid(game, seat), nil
	case PhaseFormingHands:
		return b.passCards(game, seat), nil
	case PhasePlayingCards:
		return b.playCard(game, seat), nil
	default:
		return nil, &InternalError{Reason: "bot asked to act in a phase with no legal command"}
	}
}

func (b RandomBotStrategy) bid(game Game, seat Seat) Command {
	if game.Summary[seat] >= NotAllowedToBidThreshold {
		return MakeBidCommand{Seat: seat, Bid: -1}
	}

	highestBid := MinBid
	if game.Round.HighestBid != nil {
		highestBid = game.Round.HighestBid.Amount
	}

	passingProbability := float64(highestBid)/float64(MaxBid) + 0.3
	if b.float64() < passingProbability {
		return MakeBidCommand{Seat: seat, Bid: -1}
	}

	choices := make([]int, 0)
	for bid := highestBid; bid <= MaxBid; bid += BidStep {
		choices = append(choices, bid)
	}
	if len(choices) == 0 {
		return MakeBidCommand{Seat: seat, Bid: -1}
	}
	return MakeBidCommand{Seat: seat, Bid: choices[b.intn(len(choices))]}
}

func (b RandomBotStrategy) passCards(game Game, seat Seat) Command {
	cards := game.Round.SeatInfos[seat].Hand.Cards()
	i := b.intn(len(cards))
	j := b.intn(len(cards) - 1)
	if j >= i {
		j++
	}
	return PassCardsCommand{Seat: seat, CardToNextSeat: cards[i], CardToPrevSeat: cards[j]}
}

func (b RandomBotStrategy) playCard(game Game, seat Seat) Command {
	allowed := game.Round.SeatInfos[seat].CardsAllowedToPlay(game.Round.RequiredSuit, game.Round.TrumpSuit)
	return PlayCardCommand{Seat: seat, Card: allowed[b.intn(len(allowed))]}
}

func (b RandomBotStrategy) float64() float64 {
	if b.Rand != nil {
		return b.Rand.Float64()
	}
	return rand.Float64()
}

func (b RandomBotStrategy) intn(n int) int {
	if b.Rand != nil {
		return b.Rand.Intn(n)
	}
	return rand.Intn(n)
}
