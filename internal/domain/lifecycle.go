package domain

import (
	"fmt"
	"strings"
)

// Transition is a legal move of a donation request between two statuses.
type Transition struct {
	From DonationStatus
	To   DonationStatus
}

var transitions = []Transition{
	{From: DonationPending, To: DonationInProgress},
	{From: DonationPending, To: DonationCanceled},
	// re-assignment keeps the request in progress
	{From: DonationInProgress, To: DonationInProgress},
	{From: DonationInProgress, To: DonationDone},
	{From: DonationInProgress, To: DonationCanceled},
}

var transitionSet = func() map[Transition]struct{} {
	m := make(map[Transition]struct{}, len(transitions))
	for _, t := range transitions {
		m[t] = struct{}{}
	}
	return m
}()

// Lifecycle checks status changes. A non-strict lifecycle accepts every move
// between known statuses.
type Lifecycle struct {
	Strict bool
}

func (l Lifecycle) Check(from, to DonationStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown donation status %q", ErrInvalid, to)
	}
	if !l.Strict {
		return nil
	}
	if _, ok := transitionSet[Transition{From: from, To: to}]; ok {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s is not allowed, valid next statuses: %s",
		ErrInvalid, from, to, describeNext(from))
}

// NextStatuses lists the statuses reachable from s under strict rules.
func NextStatuses(s DonationStatus) []DonationStatus {
	var out []DonationStatus
	for _, t := range transitions {
		if t.From == s {
			out = append(out, t.To)
		}
	}
	return out
}

// Transitions returns a copy of the strict transition table.
func Transitions() []Transition { return append([]Transition(nil), transitions...) }

func describeNext(s DonationStatus) string {
	next := NextStatuses(s)
	if len(next) == 0 {
		return "none (terminal)"
	}
	parts := make([]string, len(next))
	for i, n := range next {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
