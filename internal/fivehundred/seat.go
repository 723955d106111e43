// Package fivehundred implements the Five Hundred rules engine: domain
// types (C2), the command/event resolver (C3), and the default bot
// strategy (C4). All of it is pure — no IO, no clocks beyond what callers
// inject, immutable state transitions via value receivers returning copies.
package fivehundred

import "sort"

// Seat is a seat number at the table. Five Hundred is played with exactly
// three seats, numbered 1..3, but seat arithmetic (Next/Prev) operates over
// whatever set of seats is currently taken, matching the source's ring
// model over an arbitrary active-seat set.
type Seat int

// Next returns the next seat after s in ascending-wrapping order among taken.
func (s Seat) Next(taken []Seat) Seat {
	ordered := sortedSeats(taken)
	for i, seat := range ordered {
		if seat == s {
			return ordered[(i+1)%len(ordered)]
		}
	}
	return s
}

// Prev returns the seat before s in ascending-wrapping order among taken.
func (s Seat) Prev(taken []Seat) Seat {
	ordered := sortedSeats(taken)
	for i, seat := range ordered {
		if seat == s {
			return ordered[(i-1+len(ordered))%len(ordered)]
		}
	}
	return s
}

func sortedSeats(taken []Seat) []Seat {
	out := append([]Seat(nil), taken...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
