package fivehundred

import "gametable/pkg/deck"

// HandleCommand validates cmd against game and, if legal, returns the single
// primary event it produces. It never mutates game; ApplyEvent does that.
// Illegal commands return a *RulesError.
func HandleCommand(game Game, shuffler deck.Shuffler, cmd Command) (Event, error) {
	switch c := cmd.(type) {
	case StartGameCommand:
		return handleStartGame(shuffler)
	case MakeBidCommand:
		return handleMakeBid(game, c)
	case GiveUpCommand:
		return handleGiveUp(game, c)
	case PassCardsCommand:
		return handlePassCards(game, c)
	case PlayCardCommand:
		return handlePlayCard(game, c)
	case EndGameCommand:
		return handleEndGame(c)
	default:
		return nil, &InternalError{Reason: "unknown command type"}
	}
}

func handleStartGame(shuffler deck.Shuffler) (Event, error) {
	d := deck.Build().Shuffle(shuffler)
	return DeckShuffledEvent{Deck: d.Cards()}, nil
}

func handleMakeBid(game Game, c MakeBidCommand) (Event, error) {
	if game.Round.Phase != PhaseBidding {
		return nil, &RulesError{Code: "wrong_phase", Message: "not the bidding phase"}
	}
	if c.Seat != game.ActiveSeat {
		return nil, &RulesError{Code: "not_your_turn", Message: "it is not this seat's turn to bid"}
	}

	activeSeatSummary := game.Summary[game.ActiveSeat]
	if activeSeatSummary >= NotAllowedToBidThreshold && c.Bid >= 0 {
		return nil, &RulesError{Code: "bidding_not_allowed", Message: "seat has crossed the bidding threshold and may only pass"}
	}

	switch {
	case c.Bid >= 0 && c.Bid%BidStep != 0:
		return nil, &RulesError{Code: "invalid_bid_step", Message: "bid must be a multiple of the bid step"}
	case c.Bid >= 0 && c.Bid < MinBid:
		return nil, &RulesError{Code: "bid_too_low", Message: "bid is below the minimum"}
	case c.Bid > MaxBid:
		return nil, &RulesError{Code: "bid_too_high", Message: "bid exceeds the maximum"}
	case c.Bid >= 0 && game.Round.HighestBid != nil && c.Bid <= game.Round.HighestBid.Amount:
		return nil, &RulesError{Code: "bid_too_low", Message: "bid must exceed the current highest bid"}
	}

	return BidMadeEvent{Bid: c.Bid, MadeBy: game.ActiveSeat}, nil
}

func handleGiveUp(game Game, c GiveUpCommand) (Event, error) {
	if game.Round.Phase != PhaseFormingHands && game.Round.Phase != PhasePlayingCards {
		return nil, &RulesError{Code: "wrong_phase", Message: "cannot give up outside the declarer's round"}
	}
	if game.Round.HighestBid == nil || game.Round.HighestBid.Seat != c.Seat {
		return nil, &RulesError{Code: "not_declarer", Message: "only the declarer may give up the round"}
	}
	return DeclarerGaveUpEvent{}, nil
}

func handlePassCards(game Game, c PassCardsCommand) (Event, error) {
	if game.Round.Phase != PhaseFormingHands {
		return nil, &RulesError{Code: "wrong_phase", Message: "not the forming-hands phase"}
	}
	if c.Seat != game.ActiveSeat {
		return nil, &RulesError{Code: "not_your_turn", Message: "only the declarer passes cards"}
	}

	hand := game.ActiveSeatInfo().Hand
	if hand.Len() != CardsInStartingHand+CardsToTake {
		return nil, &RulesError{Code: "hidden_cards_not_taken", Message: "declarer has not taken the kitty yet"}
	}
	if !hand.Has(c.CardToNextSeat) || !hand.Has(c.CardToPrevSeat) {
		return nil, &RulesError{Code: "card_not_in_hand", Message: "declarer does not hold one or both passed cards"}
	}

	return CardsPassedEvent{CardToNextSeat: c.CardToNextSeat, CardToPrevSeat: c.CardToPrevSeat}, nil
}

func handlePlayCard(game Game, c PlayCardCommand) (Event, error) {
	if game.Round.Phase != PhasePlayingCards {
		return nil, &RulesError{Code: "wrong_phase", Message: "not the card-playing phase"}
	}
	if c.Seat != game.ActiveSeat {
		return nil, &RulesError{Code: "not_your_turn", Message: "it is not this seat's turn to play"}
	}

	info := game.ActiveSeatInfo()
	if !info.Hand.Has(c.Card) {
		return nil, &RulesError{Code: "card_not_in_hand", Message: "seat does not hold this card"}
	}

	allowed := info.CardsAllowedToPlay(game.Round.RequiredSuit, game.Round.TrumpSuit)
	ok := false
	for _, a := range allowed {
		if a == c.Card {
			ok = true
			break
		}
	}
	if !ok {
		return nil, &RulesError{Code: "card_not_allowed_to_play", Message: "must follow suit or trump if able"}
	}

	return CardPlayedEvent{Card: c.Card, PlayedBy: c.Seat}, nil
}

func handleEndGame(c EndGameCommand) (Event, error) {
	return GameEndedEvent{Reason: c.Reason, Seat: c.Seat}, nil
}
