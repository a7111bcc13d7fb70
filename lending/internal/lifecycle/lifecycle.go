// Package lifecycle holds the borrow state machine as data. It decides the
// target status and the stock effect of an event; applying them is left to
// the caller's transaction.
package lifecycle

import (
	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
)

type Event string

const (
	EventApprove  Event = "approve"
	EventDecline  Event = "decline"
	EventReturn   Event = "return"
	EventOverride Event = "override"
)

type StockEffect uint8

const (
	StockNone StockEffect = iota
	StockReserve
	StockRelease
)

type Transition struct {
	From   model.Status
	To     model.Status
	Effect StockEffect
	// OnInsufficient is the status used when a reserve finds no stock.
	// Empty means the transition fails with ErrBookNotAvailable.
	OnInsufficient model.Status
}

// SetsBorrowDate reports whether entering To starts the loan.
func (t Transition) SetsBorrowDate() bool {
	return t.To == model.StatusBorrowed
}

func (t Transition) SetsReturnDate() bool {
	return t.To == model.StatusReturned
}

type key struct {
	from   model.Status
	event  Event
	target model.Status
}

var table = map[key]Transition{
	{model.StatusPending, EventApprove, ""}: {
		To: model.StatusBorrowed, Effect: StockReserve, OnInsufficient: model.StatusDeclined,
	},
	{model.StatusPending, EventDecline, ""}: {
		To: model.StatusDeclined,
	},
	{model.StatusBorrowed, EventReturn, ""}: {
		To: model.StatusReturned, Effect: StockRelease,
	},
	{model.StatusBorrowed, EventOverride, model.StatusReturned}: {
		To: model.StatusReturned, Effect: StockRelease,
	},
	{model.StatusPending, EventOverride, model.StatusBorrowed}: {
		To: model.StatusBorrowed, Effect: StockReserve,
	},
	{model.StatusPending, EventOverride, model.StatusDeclined}: {
		To: model.StatusDeclined,
	},
}

// Next resolves the transition for an event. target is only read for
// EventOverride, where the admin names the status to move to.
func Next(from model.Status, event Event, target model.Status) (Transition, error) {
	if event != EventOverride {
		target = ""
	}
	t, ok := table[key{from: from, event: event, target: target}]
	if !ok {
		return Transition{}, errs.ErrInvalidTransition
	}
	t.From = from
	return t, nil
}
