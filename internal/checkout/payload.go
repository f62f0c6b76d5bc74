package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ifoundit/checkout-api/internal/payment"
	"github.com/ifoundit/checkout-api/internal/pricing"
)

// LineItem is one priced row of the payment session payload. Amount is the
// per-unit price in major currency units.
type LineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int64           `json:"quantity"`
}

// BuildLineItems derives the payment line items for a cart state. It shares
// the engine's effective-selection rule and price table, so the sum of
// amount x quantity over the result always equals the engine's total. Order is
// fixed: base plan first (omitted while free), tags in table order, bolt-ons
// in axis order.
func BuildLineItems(state pricing.CartState) ([]LineItem, error) {
	basePlan, ok := pricing.Table.CapacityTiers[state.TagCapacity]
	if !ok {
		return nil, &pricing.InvalidTierError{Field: "tagCapacity", Value: state.TagCapacity}
	}

	items := make([]LineItem, 0, 4)
	if basePlan.IsPositive() {
		items = append(items, LineItem{
			Name:     fmt.Sprintf("Capacity Plan: Up to %d", state.TagCapacity),
			Amount:   basePlan,
			Quantity: 1,
		})
	}

	effective := pricing.EffectiveSelection(state.SelectedTags)
	for _, tag := range pricing.Table.TagTypes {
		qty := effective[tag.ID]
		if qty <= 0 {
			continue
		}
		items = append(items, LineItem{
			Name:        tag.Name,
			Description: tag.Descriptor,
			Amount:      tag.UnitPrice,
			Quantity:    int64(qty),
		})
	}

	boltOns, _, err := pricing.BoltOnSelections(state)
	if err != nil {
		return nil, err
	}
	for _, boltOn := range boltOns {
		items = append(items, LineItem{
			Name:     boltOn.Name,
			Amount:   boltOn.Price,
			Quantity: 1,
		})
	}
	return items, nil
}

// PayloadTotal sums amount x quantity over the line items.
func PayloadTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total
}

// SessionItems converts line items into the provider's minor-unit form.
func SessionItems(items []LineItem) []payment.SessionItem {
	out := make([]payment.SessionItem, 0, len(items))
	for _, item := range items {
		out = append(out, payment.SessionItem{
			Name:        item.Name,
			Description: item.Description,
			UnitAmount:  pricing.MinorUnits(item.Amount),
			Quantity:    item.Quantity,
		})
	}
	return out
}
