package fivehundred

import (
	"maps"

	"gametable/pkg/deck"
)

// ApplyEvent is the pure reducer: given a state and an already-validated
// event, returns the next state. It never fails for anything HandleCommand
// could have produced; an error here means the event stream itself is
// corrupt (spec's InternalError taxonomy).
func ApplyEvent(game Game, shuffler deck.Shuffler, event Event) (Game, error) {
	game.EventNumber = event.SeqNumber()
	// The reducers below write into these maps; copy them first so the
	// caller's state is left untouched.
	game.Round.SeatInfos = maps.Clone(game.Round.SeatInfos)
	game.Round.CardsOnBoard = maps.Clone(game.Round.CardsOnBoard)

	switch e := event.(type) {
	case DeckShuffledEvent:
		return applyDeckShuffled(game, e)
	case BidMadeEvent:
		return applyBidMade(game, e), nil
	case BiddingFinishedEvent:
		return applyBiddingFinished(game), nil
	case HiddenCardsTakenEvent:
		return applyHiddenCardsTaken(game), nil
	case DeclarerGaveUpEvent:
		return applyDeclarerGaveUp(game), nil
	case CardsPassedEvent:
		return applyCardsPassed(game, e), nil
	case CardPlayedEvent:
		return applyCardPlayed(game, e), nil
	case MarriagePointsAddedEvent:
		return applyMarriagePointsAdded(game, e), nil
	case TrickTakenEvent:
		return applyTrickTaken(game, e), nil
	case RoundFinishedEvent:
		return applyRoundFinished(game, e), nil
	case GameEndedEvent:
		return applyGameEnded(game, e), nil
	default:
		return game, &InternalError{Reason: "unknown event type applied"}
	}
}

func applyDeckShuffled(game Game, e DeckShuffledEvent) (Game, error) {
	d := deck.FromCards(e.Deck)
	round, _, err := NewRound(d, game.Round.RoundNumber, game.Round.FirstSeat, game.TakenSeats)
	if err != nil {
		return game, err
	}
	game.Round = round
	return game, nil
}

func applyBidMade(game Game, e BidMadeEvent) Game {
	active := game.ActiveSeat

	if e.Bid > 0 {
		bid := Bid{Seat: active, Amount: e.Bid}
		game.Round.HighestBid = &bid
	}

	info := game.Round.SeatInfos[active]
	info.Bid = e.Bid
	game.Round.SeatInfos[active] = info

	if next := getNextSeatToBid(active, game.Round.SeatInfos); next != nil {
		game.ActiveSeat = *next
	}
	game.TurnNumber++
	return game
}

func applyBiddingFinished(game Game) Game {
	game.Round.Phase = PhaseFormingHands
	return game
}

func applyHiddenCardsTaken(game Game) Game {
	active := game.ActiveSeat
	info := game.Round.SeatInfos[active]
	info.Hand = info.Hand.AddCards(game.Round.CardsToTake...)
	game.Round.SeatInfos[active] = info
	game.Round.CardsToTake = nil
	return game
}

func applyDeclarerGaveUp(game Game) Game {
	game.TurnNumber++
	return game
}

func applyCardsPassed(game Game, e CardsPassedEvent) Game {
	active := game.ActiveSeat
	next := active.Next(game.TakenSeats)
	prev := active.Prev(game.TakenSeats)

	activeInfo := game.Round.SeatInfos[active]
	nextInfo := game.Round.SeatInfos[next]
	prevInfo := game.Round.SeatInfos[prev]

	activeHand, err := activeInfo.Hand.RemoveCards(e.CardToNextSeat, e.CardToPrevSeat)
	if err != nil {
		// HandleCommand already validated possession; this cannot happen.
		panic(err)
	}
	activeInfo.Hand = activeHand
	nextInfo.Hand = nextInfo.Hand.AddCards(e.CardToNextSeat)
	prevInfo.Hand = prevInfo.Hand.AddCards(e.CardToPrevSeat)

	game.Round.SeatInfos[active] = activeInfo
	game.Round.SeatInfos[next] = nextInfo
	game.Round.SeatInfos[prev] = prevInfo
	game.Round.Phase = PhasePlayingCards
	return game
}

func applyCardPlayed(game Game, e CardPlayedEvent) Game {
	active := game.ActiveSeat
	firstOfTrick := game.Round.CardsOnBoardCount() == 0

	card := e.Card
	game.Round.CardsOnBoard[active] = &card

	info := game.Round.SeatInfos[active]
	hand, err := info.Hand.RemoveCards(card)
	if err != nil {
		panic(err)
	}
	info.Hand = hand
	game.Round.SeatInfos[active] = info

	if firstOfTrick {
		suit := card.Suit
		game.Round.RequiredSuit = &suit
		if game.Round.TrumpSuit == nil {
			trump := card.Suit
			game.Round.TrumpSuit = &trump
		}
	}

	game.ActiveSeat = active.Next(game.TakenSeats)
	return game
}

func applyMarriagePointsAdded(game Game, e MarriagePointsAddedEvent) Game {
	info := game.Round.SeatInfos[e.AddedTo]
	info.MarriagePoints = append(append([]int(nil), info.MarriagePoints...), e.Points)
	info.Points += e.Points
	game.Round.SeatInfos[e.AddedTo] = info
	game.Round.IsMarriageAnnounced = true
	return game
}

func applyTrickTaken(game Game, e TrickTakenEvent) Game {
	trickPoints := 0
	for _, c := range e.Cards {
		trickPoints += c.Points()
	}

	info := game.Round.SeatInfos[e.TakenBy]
	info.Points += trickPoints
	info.TrickCount++
	game.Round.SeatInfos[e.TakenBy] = info

	for seat := range game.Round.CardsOnBoard {
		game.Round.CardsOnBoard[seat] = nil
	}
	game.Round.PrevTrick = e.Cards
	game.Round.RequiredSuit = nil
	game.ActiveSeat = e.TakenBy
	return game
}

func applyRoundFinished(game Game, e RoundFinishedEvent) Game {
	seatPoints := make(map[Seat]int, len(game.Round.SeatInfos))
	for seat := range game.Round.SeatInfos {
		seatPoints[seat] = -roundPointsForSeat(game, seat, e.GivenUp)
	}

	game.Results = append(game.Results, RoundResults{
		RoundNumber:   game.Round.RoundNumber,
		BiddingResult: game.Round.HighestBid,
		SeatPoints:    seatPoints,
	})

	summary := make(map[Seat]int, len(game.Summary))
	for seat, points := range game.Summary {
		summary[seat] = points + seatPoints[seat]
	}
	game.Summary = summary

	firstSeat := game.Round.FirstSeat.Next(game.TakenSeats)
	game.ActiveSeat = firstSeat

	// The fresh round is dealt by the DeckShuffled event that
	// checkForAdditionalEvents schedules next; here we only advance the
	// round number and first seat so that deal carries them forward.
	game.Round = Round{RoundNumber: game.Round.RoundNumber + 1, FirstSeat: firstSeat, Phase: PhaseInitializing}
	game.ReplaySafeEventNumber = game.EventNumber
	return game
}

// roundPointsForSeat is the non-negated per-seat delta: positive means the
// seat's game-summary goes DOWN by this much (good, since summary counts
// down toward zero); it is negated by the caller before being added.
func roundPointsForSeat(game Game, seat Seat, givenUp bool) int {
	isDeclarer := game.Round.HighestBid != nil && game.Round.HighestBid.Seat == seat

	if isDeclarer {
		points := game.Round.SeatInfos[seat].Points
		if givenUp {
			points = 0
		}
		bid := game.Round.HighestBid.Amount
		if bid <= points {
			return bid
		}
		return -bid
	}

	if givenUp {
		// The declarer bailed out rather than play the contract through;
		// the other seats don't get their accumulated trick points, they
		// just forfeit the configured give-up penalty instead.
		return -game.GameConfig.GiveUpPoints
	}

	info := game.Round.SeatInfos[seat]
	diff := info.Points % 5
	rounded := info.Points - diff
	if diff > 2 {
		rounded += 5
	}
	// A seat that has already crossed MustBidThreshold forfeits round points:
	// it is close enough to being barred from bidding that it no longer
	// benefits from passive scoring.
	if game.Summary[seat] >= MustBidThreshold {
		return 0
	}
	return rounded
}

func applyGameEnded(game Game, e GameEndedEvent) Game {
	ending := GameEnding{Reason: e.Reason, BlamedSeat: e.Seat}
	if e.Reason != EndingAborted {
		winners := game.Winners()
		if len(winners) > 0 {
			ending.WinningSeat = &winners[0]
		}
	}
	game.Ending = &ending
	game.Round.Phase = PhaseGameEnded
	game.Round.SeatInfos = nil
	game.Round.CardsOnBoard = nil
	game.Round.CardsToTake = nil
	game.Round.RequiredSuit = nil
	game.Round.TrumpSuit = nil
	game.Round.HighestBid = nil
	game.Round.IsMarriageAnnounced = false
	game.ReplaySafeEventNumber = game.EventNumber
	return game
}
