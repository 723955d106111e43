package analytics

import (
	"testing"
	"time"

	"gametable/internal/fivehundred"
)

func TestFromRoundFinishedCarriesDeclarerAndSeatPoints(t *testing.T) {
	now := time.Unix(1700000000, 0)
	event := fivehundred.RoundFinishedEvent{Seq: 7, RoundNumber: 3, GivenUp: true}
	results := fivehundred.RoundResults{
		RoundNumber:   3,
		BiddingResult: &fivehundred.Bid{Seat: 1, Amount: 6},
		SeatPoints:    map[fivehundred.Seat]int{0: -40, 1: 220, 2: -40},
	}

	record := FromRoundFinished("table-1", fivehundred.FiveHundred, event, results, now)

	if record.TableID != "table-1" || record.GameName != string(fivehundred.FiveHundred) {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.RoundNumber != 3 || record.DeclarerSeat != 1 || record.BidAmount != 6 {
		t.Fatalf("unexpected bidding fields: %+v", record)
	}
	if !record.GivenUp {
		t.Fatal("expected GivenUp to carry through from the event")
	}
	if record.SeatPoints[1] != 220 {
		t.Fatalf("expected seat 1 to have 220 points, got %+v", record.SeatPoints)
	}
	if record.EventType != EventRoundFinished {
		t.Fatalf("expected EventRoundFinished, got %v", record.EventType)
	}
}

func TestFromRoundFinishedHandlesNoBidder(t *testing.T) {
	now := time.Unix(1700000000, 0)
	event := fivehundred.RoundFinishedEvent{Seq: 1, RoundNumber: 1}
	results := fivehundred.RoundResults{RoundNumber: 1, SeatPoints: map[fivehundred.Seat]int{}}

	record := FromRoundFinished("table-1", fivehundred.FiveHundred, event, results, now)

	if record.DeclarerSeat != 0 || record.BidAmount != 0 {
		t.Fatalf("expected zero-value bidding fields when every seat passed, got %+v", record)
	}
}

func TestFromGameEndedCarriesWinnersAndEnding(t *testing.T) {
	now := time.Unix(1700000000, 0)
	winners := []fivehundred.Seat{0, 2}

	record := FromGameEnded("table-1", fivehundred.FiveHundred, winners, fivehundred.EndingSeatWon, 9, now)

	if record.TableID != "table-1" || record.EventType != EventGameFinished {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if len(record.WinnerSeats) != 2 || record.WinnerSeats[0] != 0 || record.WinnerSeats[1] != 2 {
		t.Fatalf("unexpected winner seats: %v", record.WinnerSeats)
	}
	if record.Ending != fivehundred.EndingSeatWon.String() {
		t.Fatalf("expected ending %q, got %q", fivehundred.EndingSeatWon.String(), record.Ending)
	}
	if record.RoundsPlayed != 9 {
		t.Fatalf("expected 9 rounds played, got %d", record.RoundsPlayed)
	}
}

func TestItoaHandlesZeroNegativeAndPositive(t *testing.T) {
	cases := map[int]string{0: "0", 5: "5", -5: "-5", 123: "123", -123: "-123"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Fatalf("itoa(%d) = %q, want %q", in, got, want)
		}
	}
}
