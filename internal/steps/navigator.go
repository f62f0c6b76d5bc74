package steps

import (
	"errors"

	"github.com/ifoundit/checkout-api/internal/pricing"
)

// Step is one screen of the checkout flow.
type Step string

// Checkout steps in order.
const (
	StepCapacity Step = "capacity"
	StepTags     Step = "tags"
	StepAddons   Step = "addons"
	StepSummary  Step = "summary"
)

var order = []Step{StepCapacity, StepTags, StepAddons, StepSummary}

// ErrNotReady is returned when advancing past the summary with a selection
// that fails the submission gate.
var ErrNotReady = errors.New("steps: selection outside plan capacity")

// Navigator is a linear step machine. It is deliberately stateless about the
// cart: readiness is evaluated against the state passed to Advance.
type Navigator struct {
	index int
}

// Current returns the active step.
func (n *Navigator) Current() Step {
	return order[n.index]
}

// Back moves one step back, stopping at the first step.
func (n *Navigator) Back() Step {
	if n.index > 0 {
		n.index--
	}
	return order[n.index]
}

// Next moves one step forward, stopping at the summary. Leaving the summary is
// the checkout call-to-action and goes through Advance instead.
func (n *Navigator) Next() Step {
	if n.index < len(order)-1 {
		n.index++
	}
	return order[n.index]
}

// Advance is Next plus the submission gate: from the summary step it checks
// that the effective selection fits the plan before reporting readiness.
func (n *Navigator) Advance(state pricing.CartState) (Step, bool, error) {
	if n.Current() != StepSummary {
		return n.Next(), false, nil
	}
	if !Ready(state) {
		return StepSummary, false, ErrNotReady
	}
	return StepSummary, true, nil
}

// Ready reports whether the state passes the submission gate.
func Ready(state pricing.CartState) bool {
	quantity := 0
	for _, qty := range pricing.EffectiveSelection(state.SelectedTags) {
		if qty > 0 {
			quantity += qty
		}
	}
	return quantity >= 1 && quantity <= state.TagCapacity
}
