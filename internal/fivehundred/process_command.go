package fivehundred

import "gametable/pkg/deck"

// ProcessCommand validates cmd, applies its primary event, then cascades
// any follow-up events (bidding finished, trick taken, round finished, ...)
// until the state settles. It returns the updated game and the full,
// ordered list of events produced — exactly what the table manager appends
// to the event log (spec §4.3.3). seqStart is the seq number to assign to
// the first produced event; subsequent events increment from there.
func ProcessCommand(game Game, shuffler deck.Shuffler, cmd Command, seqStart int) (Game, []Event, error) {
	event, err := HandleCommand(game, shuffler, cmd)
	if err != nil {
		return game, nil, err
	}

	var events []Event
	seq := seqStart
	current := event.withSeqNumber(seq)

	for current != nil {
		game, err = ApplyEvent(game, shuffler, current)
		if err != nil {
			return game, events, err
		}
		events = append(events, current)

		next := checkForAdditionalEvents(game, shuffler, current)
		if next == nil {
			current = nil
			continue
		}
		seq++
		current = next.withSeqNumber(seq)
	}

	return game, events, nil
}

// checkForAdditionalEvents inspects the event just applied and decides
// whether the new state implies another event must follow immediately
// (spec §4.3.3's cascade rule). Returns nil when the state has settled.
func checkForAdditionalEvents(game Game, shuffler deck.Shuffler, lastEvent Event) Event {
	switch e := lastEvent.(type) {
	case BidMadeEvent:
		return checkAfterBidMade(game, e)

	case BiddingFinishedEvent:
		if game.Round.HighestBid == nil {
			return RoundFinishedEvent{RoundNumber: game.Round.RoundNumber, GivenUp: false}
		}
		return HiddenCardsTakenEvent{}

	case DeclarerGaveUpEvent:
		var declarer *Seat
		if game.Round.HighestBid != nil {
			s := game.Round.HighestBid.Seat
			declarer = &s
		}
		return RoundFinishedEvent{RoundNumber: game.Round.RoundNumber, Declarer: declarer, GivenUp: true}

	case CardPlayedEvent:
		return checkAfterCardPlayed(game, e)

	case TrickTakenEvent:
		if game.ActiveSeatInfo().Hand.Len() == EmptyHandSize {
			var declarer *Seat
			if game.Round.HighestBid != nil {
				s := game.Round.HighestBid.Seat
				declarer = &s
			}
			return RoundFinishedEvent{RoundNumber: game.Round.RoundNumber, Declarer: declarer, GivenUp: false}
		}
		return nil

	case RoundFinishedEvent:
		return checkAfterRoundFinished(game, shuffler)

	default:
		return nil
	}
}

func checkAfterBidMade(game Game, e BidMadeEvent) Event {
	var currentHighestBidder *Seat
	if game.Round.HighestBid != nil {
		s := game.Round.HighestBid.Seat
		currentHighestBidder = &s
	}

	haveAllPassed := true
	for _, info := range game.Round.SeatInfos {
		if info.Bid >= 0 {
			haveAllPassed = false
			break
		}
	}

	isCurrentBidderHighest := currentHighestBidder != nil && *currentHighestBidder == game.ActiveSeat
	nextSeatToBid := getNextSeatToBid(game.ActiveSeat, game.Round.SeatInfos)

	if (isCurrentBidderHighest && nextSeatToBid == nil) || haveAllPassed {
		var bid *int
		var madeBy *Seat
		if game.Round.HighestBid != nil {
			b := game.Round.HighestBid.Amount
			s := game.Round.HighestBid.Seat
			bid, madeBy = &b, &s
		}
		return BiddingFinishedEvent{Bid: bid, MadeBy: madeBy}
	}
	return nil
}

func checkAfterCardPlayed(game Game, e CardPlayedEvent) Event {
	count := game.Round.CardsOnBoardCount()

	switch count {
	case 1:
		cardsLeftInHand := game.Round.SeatInfos[e.PlayedBy].Hand.Cards()
		if !isPlayedCardPartOfMarriage(e.Card, cardsLeftInHand) {
			return nil
		}
		if game.Round.TrumpSuit != nil && e.Card.Suit == *game.Round.TrumpSuit {
			return MarriagePointsAddedEvent{Points: LargeMarriagePoints, AddedTo: e.PlayedBy}
		}
		if game.Round.IsMarriageAnnounced {
			return MarriagePointsAddedEvent{Points: SmallMarriagePoints, AddedTo: e.PlayedBy}
		}
		return nil

	case 3:
		trickCards := game.Round.TrickCards()
		winningCard, err := getTrickWinningCard(trickCards, game.Round.RequiredSuit, game.Round.TrumpSuit)
		if err != nil {
			return nil
		}
		var winningSeat Seat
		for seat, c := range game.Round.CardsOnBoard {
			if c != nil && *c == winningCard {
				winningSeat = seat
				break
			}
		}
		return TrickTakenEvent{TakenBy: winningSeat, Cards: trickCards}

	default:
		return nil
	}
}

func checkAfterRoundFinished(game Game, shuffler deck.Shuffler) Event {
	for _, points := range game.Summary {
		if points <= 0 {
			return GameEndedEvent{Reason: EndingSeatWon}
		}
	}
	allBarred := true
	for _, points := range game.Summary {
		if points < NotAllowedToBidThreshold {
			allBarred = false
			break
		}
	}
	if allBarred {
		return GameEndedEvent{Reason: EndingAllSeatsBarred}
	}
	if game.Round.RoundNumber >= game.GameConfig.MaxRounds {
		return GameEndedEvent{Reason: EndingMaxRoundsReached}
	}
	d := deck.Build().Shuffle(shuffler)
	return DeckShuffledEvent{Deck: d.Cards()}
}
