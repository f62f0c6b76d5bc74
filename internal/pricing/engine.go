package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartState is the full mutable selection a visitor builds up during checkout.
// The zero quantity and the absent key mean the same thing: not selected.
type CartState struct {
	TagCapacity   int            `json:"tagCapacity"`
	SelectedTags  map[string]int `json:"selectedTags"`
	FinderRewards int            `json:"finderRewards"`
	ReturnCredits int            `json:"returnCredits"`
	ExtraContacts int            `json:"extraContacts"`
}

// InitialState returns the fixed session starting point: the single-tag plan
// with nothing explicitly selected and every bolt-on off.
func InitialState() CartState {
	return CartState{
		TagCapacity:  1,
		SelectedTags: map[string]int{},
	}
}

// Clone deep-copies the state so callers can hand out snapshots safely.
func (s CartState) Clone() CartState {
	tags := make(map[string]int, len(s.SelectedTags))
	for id, qty := range s.SelectedTags {
		tags[id] = qty
	}
	out := s
	out.SelectedTags = tags
	return out
}

// TagItem is one priced tag row of the order breakdown.
type TagItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// BoltOnItem is one priced bolt-on row of the order breakdown.
type BoltOnItem struct {
	Axis  AddonAxis       `json:"axis"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// PricedOrder is the decomposed result of pricing a cart. It is a value,
// recomputed on demand, and carries no identity.
type PricedOrder struct {
	BasePlanCost          decimal.Decimal `json:"basePlanCost"`
	RawTagsCost           decimal.Decimal `json:"rawTagsCost"`
	TagItems              []TagItem       `json:"tagItems"`
	BoltOnItems           []BoltOnItem    `json:"boltOnItems"`
	AddOnsCost            decimal.Decimal `json:"addOnsCost"`
	Total                 decimal.Decimal `json:"total"`
	TotalSelectedQuantity int             `json:"totalSelectedQuantity"`
}

// InvalidTierError reports a capacity or bolt-on tier absent from the table.
// It is the engine's only error condition; every other well-typed state prices
// successfully, including over-capacity and empty selections.
type InvalidTierError struct {
	Field string
	Value int
}

func (e *InvalidTierError) Error() string {
	return fmt.Sprintf("pricing: invalid %s tier %d", e.Field, e.Value)
}

// EffectiveSelection applies the implicit selection rule: an empty selection
// is priced as one unit of the default tag, regardless of capacity, so the
// cart can never settle at a zero-tag total. The input map is not mutated.
// Both the pricing engine and the checkout payload builder derive their line
// items through this single function.
func EffectiveSelection(selected map[string]int) map[string]int {
	eff := make(map[string]int, len(selected)+1)
	hasSelections := false
	for id, qty := range selected {
		eff[id] = qty
		if qty > 0 {
			hasSelections = true
		}
	}
	if !hasSelections {
		eff[DefaultTagID] = 1
	}
	return eff
}

// BoltOnSelections returns the non-zero bolt-on line items for the state in
// the fixed axis order, with pluralisation-aware labels. Tier validity is the
// caller's concern; unknown tiers yield an InvalidTierError.
func BoltOnSelections(state CartState) ([]BoltOnItem, decimal.Decimal, error) {
	finder, ok := Table.FinderRewardTiers[state.FinderRewards]
	if !ok {
		return nil, decimal.Zero, &InvalidTierError{Field: string(AxisFinderRewards), Value: state.FinderRewards}
	}
	returns, ok := Table.ReturnCreditTiers[state.ReturnCredits]
	if !ok {
		return nil, decimal.Zero, &InvalidTierError{Field: string(AxisReturnCredits), Value: state.ReturnCredits}
	}
	contacts, ok := Table.ExtraContactTiers[state.ExtraContacts]
	if !ok {
		return nil, decimal.Zero, &InvalidTierError{Field: string(AxisExtraContacts), Value: state.ExtraContacts}
	}

	var items []BoltOnItem
	if state.FinderRewards > 0 {
		items = append(items, BoltOnItem{
			Axis:  AxisFinderRewards,
			Name:  fmt.Sprintf("%d × £20 Finder Credit%s", state.FinderRewards, plural(state.FinderRewards)),
			Price: finder,
		})
	}
	if state.ReturnCredits > 0 {
		items = append(items, BoltOnItem{
			Axis:  AxisReturnCredits,
			Name:  fmt.Sprintf("%d × Return Shipping Credit%s", state.ReturnCredits, plural(state.ReturnCredits)),
			Price: returns,
		})
	}
	if state.ExtraContacts > 0 {
		items = append(items, BoltOnItem{
			Axis:  AxisExtraContacts,
			Name:  fmt.Sprintf("%d Additional Recovery Contact%s", state.ExtraContacts, plural(state.ExtraContacts)),
			Price: contacts,
		})
	}
	return items, finder.Add(returns).Add(contacts), nil
}

// CalculateTotal prices a cart state. It is pure and deterministic: tag line
// items follow price-table order, never map iteration order, and the result
// must not be cached across mutations. Monetary subtotals are rounded to two
// decimal places (half away from zero) once, when each subtotal is finalised.
func CalculateTotal(state CartState) (PricedOrder, error) {
	basePlan, ok := Table.CapacityTiers[state.TagCapacity]
	if !ok {
		return PricedOrder{}, &InvalidTierError{Field: "tagCapacity", Value: state.TagCapacity}
	}

	eff := EffectiveSelection(state.SelectedTags)

	rawTags := decimal.Zero
	totalQty := 0
	var tagItems []TagItem
	for _, tag := range Table.TagTypes {
		qty := eff[tag.ID]
		if qty <= 0 {
			continue
		}
		rawTags = rawTags.Add(tag.UnitPrice.Mul(decimal.NewFromInt(int64(qty))))
		totalQty += qty
		tagItems = append(tagItems, TagItem{ID: tag.ID, Name: tag.Name, Quantity: qty, UnitPrice: tag.UnitPrice})
	}

	boltOns, addOns, err := BoltOnSelections(state)
	if err != nil {
		return PricedOrder{}, err
	}

	rawTagsCost := round2(rawTags)
	addOnsCost := round2(addOns)
	total := round2(basePlan.Add(rawTagsCost).Add(addOnsCost))

	return PricedOrder{
		BasePlanCost:          basePlan,
		RawTagsCost:           rawTagsCost,
		TagItems:              tagItems,
		BoltOnItems:           boltOns,
		AddOnsCost:            addOnsCost,
		Total:                 total,
		TotalSelectedQuantity: totalQty,
	}, nil
}

// MinorUnits converts a major-unit amount to pence.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// round2 applies the canonical monetary rounding: two fractional digits, half
// away from zero. decimal.Round implements exactly that.
func round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
