package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/ifoundit/checkout-api/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Refresh is invoked with a state snapshot after mutations settle. Rapid
// successive edits coalesce into a single call.
type Refresh func(pricing.CartState)

// Controller owns one session's CartState. Mutations are applied to a working
// copy, re-checked against the cart invariants, then committed atomically, so
// no caller ever observes a partial update. The expensive refresh side effect
// is debounced; the state itself is always current immediately after a call.
type Controller struct {
	mu       sync.Mutex
	state    pricing.CartState
	refresh  Refresh
	debounce time.Duration
	timer    *time.Timer
}

// NewController returns a controller seeded with the fixed initial state.
// A zero debounce disables coalescing and fires the refresh synchronously.
func NewController(refresh Refresh, debounce time.Duration) *Controller {
	return &Controller{
		state:    pricing.InitialState(),
		refresh:  refresh,
		debounce: debounce,
	}
}

// State returns a snapshot of the committed cart state.
func (c *Controller) State() pricing.CartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Order prices the committed state.
func (c *Controller) Order() (pricing.PricedOrder, error) {
	return pricing.CalculateTotal(c.State())
}

// SetCapacity switches the capacity tier. Upgrading from the single-tag plan
// with nothing explicitly selected makes the implicit default tag explicit, so
// the user sees and can edit what they are being charged for.
func (c *Controller) SetCapacity(tier int) error {
	if _, ok := pricing.Table.CapacityTiers[tier]; !ok {
		return &pricing.InvalidTierError{Field: "tagCapacity", Value: tier}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.Clone()
	upgrading := c.state.TagCapacity == 1 && tier > 1
	next.TagCapacity = tier
	if upgrading && explicitQuantity(next.SelectedTags) == 0 {
		next.SelectedTags = map[string]int{pricing.DefaultTagID: 1}
	}
	c.commit(next)
	return nil
}

// AdjustTagQuantity changes one tag type's quantity by delta. Increments are a
// no-op at the capacity ceiling; decrements always succeed and reseed the cart
// to the default tag instead of letting the selection settle at zero.
func (c *Controller) AdjustTagQuantity(tagID string, delta int) error {
	if _, ok := pricing.Table.TagByID(tagID); !ok {
		return ErrInvalidInput
	}
	if delta == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.Clone()
	if delta > 0 {
		order, err := pricing.CalculateTotal(next)
		if err != nil {
			return err
		}
		if order.TotalSelectedQuantity >= next.TagCapacity {
			return nil
		}
		next.SelectedTags[tagID]++
	} else {
		qty := next.SelectedTags[tagID]
		if qty == 0 {
			return nil
		}
		next.SelectedTags[tagID] = qty - 1
		if next.SelectedTags[tagID] == 0 {
			delete(next.SelectedTags, tagID)
		}
		if explicitQuantity(next.SelectedTags) == 0 {
			next.SelectedTags = map[string]int{pricing.DefaultTagID: 1}
		}
	}
	c.commit(next)
	return nil
}

// SetAddonTier selects a tier on one of the three bolt-on axes. Tier 0 always
// means "not selected".
func (c *Controller) SetAddonTier(axis pricing.AddonAxis, tier int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.Clone()
	switch axis {
	case pricing.AxisFinderRewards:
		if _, ok := pricing.Table.FinderRewardTiers[tier]; !ok {
			return &pricing.InvalidTierError{Field: string(axis), Value: tier}
		}
		next.FinderRewards = tier
	case pricing.AxisReturnCredits:
		if _, ok := pricing.Table.ReturnCreditTiers[tier]; !ok {
			return &pricing.InvalidTierError{Field: string(axis), Value: tier}
		}
		next.ReturnCredits = tier
	case pricing.AxisExtraContacts:
		if _, ok := pricing.Table.ExtraContactTiers[tier]; !ok {
			return &pricing.InvalidTierError{Field: string(axis), Value: tier}
		}
		next.ExtraContacts = tier
	default:
		return ErrInvalidInput
	}
	c.commit(next)
	return nil
}

// Close cancels any pending refresh.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// commit swaps the committed state and schedules the coalesced refresh.
// Callers must hold c.mu.
func (c *Controller) commit(next pricing.CartState) {
	c.state = next
	if c.refresh == nil {
		return
	}
	if c.debounce <= 0 {
		c.refresh(next.Clone())
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.refresh(c.State())
	})
}

func explicitQuantity(selected map[string]int) int {
	total := 0
	for _, qty := range selected {
		if qty > 0 {
			total += qty
		}
	}
	return total
}
