package fivehundred

import (
	"testing"

	"gametable/pkg/deck"
)

// fixedShuffler returns ids unchanged, so dealt hands are deterministic and
// easy to reason about in tests.
type fixedShuffler struct{}

func (fixedShuffler) ShuffleInts(ids []int) (before, after []int) { return ids, append([]int(nil), ids...) }

func threeSeats() []Seat { return []Seat{1, 2, 3} }

func TestStartGameDealsHandsAndEntersBidding(t *testing.T) {
	engine := NewEngine(fixedShuffler{})
	game, events, err := engine.StartGame(threeSeats(), DefaultGameConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event (deck_shuffled), got %d", len(events))
	}
	if game.Round.Phase != PhaseBidding {
		t.Fatalf("expected bidding phase, got %v", game.Round.Phase)
	}
	for seat, info := range game.Round.SeatInfos {
		if info.Hand.Len() != CardsInStartingHand {
			t.Errorf("seat %d: expected %d cards, got %d", seat, CardsInStartingHand, info.Hand.Len())
		}
	}
	if len(game.Round.CardsToTake) != CardsToTake {
		t.Fatalf("expected %d kitty cards, got %d", CardsToTake, len(game.Round.CardsToTake))
	}
}

func TestMakeBidRejectsWrongSeat(t *testing.T) {
	engine := NewEngine(fixedShuffler{})
	game, _, _ := engine.StartGame(threeSeats(), DefaultGameConfig())

	wrongSeat := game.ActiveSeat.Next(game.TakenSeats)
	_, _, err := engine.ProcessCommand(game, MakeBidCommand{Seat: wrongSeat, Bid: 60}, 2)
	if err == nil {
		t.Fatal("expected an error for out-of-turn bid")
	}
	if _, ok := err.(*RulesError); !ok {
		t.Fatalf("expected *RulesError, got %T", err)
	}
}

func TestMakeBidRejectsBadStepAndRange(t *testing.T) {
	engine := NewEngine(fixedShuffler{})
	game, _, _ := engine.StartGame(threeSeats(), DefaultGameConfig())

	cases := []int{61, MinBid - 5, MaxBid + 5}
	for _, bid := range cases {
		_, _, err := engine.ProcessCommand(game, MakeBidCommand{Seat: game.ActiveSeat, Bid: bid}, 2)
		if err == nil {
			t.Errorf("bid %d: expected rejection", bid)
		}
	}
}

func TestBiddingFinishesWhenTwoSeatsPass(t *testing.T) {
	engine := NewEngine(fixedShuffler{})
	game, _, _ := engine.StartGame(threeSeats(), DefaultGameConfig())

	seat1 := game.ActiveSeat
	game, _, err := engine.ProcessCommand(game, MakeBidCommand{Seat: seat1, Bid: MinBid}, 2)
	if err != nil {
		t.Fatalf("bid 1: %v", err)
	}
	game, _, err = engine.ProcessCommand(game, MakeBidCommand{Seat: game.ActiveSeat, Bid: -1}, 3)
	if err != nil {
		t.Fatalf("pass 1: %v", err)
	}
	game, events, err := engine.ProcessCommand(game, MakeBidCommand{Seat: game.ActiveSeat, Bid: -1}, 4)
	if err != nil {
		t.Fatalf("pass 2: %v", err)
	}

	if game.Round.Phase != PhaseFormingHands {
		t.Fatalf("expected forming_hands phase after bidding settles, got %v", game.Round.Phase)
	}
	foundFinished := false
	foundTaken := false
	for _, e := range events {
		switch e.(type) {
		case BiddingFinishedEvent:
			foundFinished = true
		case HiddenCardsTakenEvent:
			foundTaken = true
		}
	}
	if !foundFinished || !foundTaken {
		t.Fatalf("expected bidding_finished and hidden_cards_taken in cascade, got %#v", events)
	}
	if game.ActiveSeatInfo().Hand.Len() != CardsInStartingHand+CardsToTake {
		t.Fatalf("declarer should hold %d cards after taking the kitty, got %d",
			CardsInStartingHand+CardsToTake, game.ActiveSeatInfo().Hand.Len())
	}
	if game.Round.HighestBid == nil || game.Round.HighestBid.Seat != seat1 {
		t.Fatalf("expected seat %d to be the declarer", seat1)
	}
}

func TestAllSeatsPassEndsRoundWithNoDeclarer(t *testing.T) {
	engine := NewEngine(fixedShuffler{})
	game, _, _ := engine.StartGame(threeSeats(), DefaultGameConfig())

	seq := 2
	for i := 0; i < 3; i++ {
		var err error
		game, _, err = engine.ProcessCommand(game, MakeBidCommand{Seat: game.ActiveSeat, Bid: -1}, seq)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		seq++
	}

	if game.Round.RoundNumber != 2 {
		t.Fatalf("expected a fresh round to have been dealt, got round %d", game.Round.RoundNumber)
	}
	if game.Round.HighestBid != nil {
		t.Fatal("expected no highest bid carried into the new round")
	}
}

func TestPlayCardEnforcesFollowSuit(t *testing.T) {
	game := Game{
		Round: Round{
			Phase:      PhasePlayingCards,
			CardsOnBoard: map[Seat]*deck.Card{1: nil, 2: nil, 3: nil},
			SeatInfos: map[Seat]SeatInfo{
				1: {Hand: deck.NewHand([]deck.Card{
					{Suit: deck.Hearts, Rank: deck.Nine},
					{Suit: deck.Clubs, Rank: deck.King},
				})},
			},
		},
		ActiveSeat: 1,
		TakenSeats: threeSeats(),
		Summary:    map[Seat]int{1: 500, 2: 500, 3: 500},
	}
	required := deck.Diamonds
	trump := deck.Clubs
	game.Round.RequiredSuit = &required
	game.Round.TrumpSuit = &trump

	_, err := HandleCommand(game, fixedShuffler{}, PlayCardCommand{Seat: 1, Card: deck.Card{Suit: deck.Hearts, Rank: deck.Nine}})
	if err == nil {
		t.Fatal("expected rejection: holds no required suit but has trump and played neither")
	}

	_, err = HandleCommand(game, fixedShuffler{}, PlayCardCommand{Seat: 1, Card: deck.Card{Suit: deck.Clubs, Rank: deck.King}})
	if err != nil {
		t.Fatalf("trump card should be allowed when required suit isn't held: %v", err)
	}
}

func TestTrickWinnerPrefersTrump(t *testing.T) {
	trump := deck.Clubs
	required := deck.Hearts
	cards := []deck.Card{
		{Suit: deck.Hearts, Rank: deck.Ace},
		{Suit: deck.Clubs, Rank: deck.Nine},
		{Suit: deck.Hearts, Rank: deck.King},
	}
	winner, err := getTrickWinningCard(cards, &required, &trump)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner.Suit != deck.Clubs {
		t.Fatalf("expected the lone trump to win, got %v", winner)
	}
}

func TestRoundPointsRoundingRule(t *testing.T) {
	game := Game{
		Round: Round{
			SeatInfos: map[Seat]SeatInfo{
				1: {Points: 33}, // diff=3 -> rounds up to 35
				2: {Points: 22}, // diff=2 -> rounds down to 20
			},
		},
		Summary: map[Seat]int{1: MustBidThreshold - 5, 2: MustBidThreshold - 5},
	}
	if got := roundPointsForSeat(game, 1, false); got != 35 {
		t.Errorf("seat 1: expected 35, got %d", got)
	}
	if got := roundPointsForSeat(game, 2, false); got != 20 {
		t.Errorf("seat 2: expected 20, got %d", got)
	}
}

func TestRoundPointsAtOrAboveThresholdScoreZero(t *testing.T) {
	game := Game{
		Round: Round{
			SeatInfos: map[Seat]SeatInfo{1: {Points: 40}},
		},
		Summary: map[Seat]int{1: MustBidThreshold},
	}
	if got := roundPointsForSeat(game, 1, false); got != 0 {
		t.Errorf("expected 0 at/above the must-bid threshold, got %d", got)
	}
}

func TestRoundPointsGivenUpChargesFlatPenalty(t *testing.T) {
	game := Game{
		Round: Round{
			SeatInfos: map[Seat]SeatInfo{
				1: {Points: 0},
				2: {Points: 60},
			},
			HighestBid: &Bid{Seat: 1, Amount: 100},
		},
		Summary:    map[Seat]int{1: 500, 2: 500},
		GameConfig: GameConfig{GiveUpPoints: DefaultGiveUpPoints},
	}
	if got := roundPointsForSeat(game, 1, true); got != -100 {
		t.Errorf("declarer who gave up: expected -bid (100), got %d", got)
	}
	if got := roundPointsForSeat(game, 2, true); got != -DefaultGiveUpPoints {
		t.Errorf("non-declarer: expected flat give-up penalty %d, got %d", -DefaultGiveUpPoints, got)
	}
}
