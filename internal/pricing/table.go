package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AddonAxis identifies one of the three independent bolt-on purchase axes.
type AddonAxis string

// Bolt-on axes in their canonical line-item order.
const (
	AxisFinderRewards AddonAxis = "finderRewards"
	AxisReturnCredits AddonAxis = "returnCredits"
	AxisExtraContacts AddonAxis = "extraContacts"
)

// DefaultTagID is the tag type seeded by the implicit selection rule.
const DefaultTagID = "halo"

// TagType describes a purchasable tag variant.
type TagType struct {
	ID         string
	Name       string
	UnitPrice  decimal.Decimal
	Descriptor string
}

// PriceTable is the versioned price list for plans, tag types and bolt-ons.
type PriceTable struct {
	CapacityTiers     map[int]decimal.Decimal
	TagTypes          []TagType
	FinderRewardTiers map[int]decimal.Decimal
	ReturnCreditTiers map[int]decimal.Decimal
	ExtraContactTiers map[int]decimal.Decimal
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Table is the process-wide price list. Tag type order is significant: it fixes
// line-item ordering for both the order summary and the payment payload.
var Table = PriceTable{
	CapacityTiers: map[int]decimal.Decimal{
		1:  price("0"),
		3:  price("0.99"),
		10: price("1.99"),
		20: price("3.99"),
	},
	TagTypes: []TagType{
		{ID: "halo", Name: "Halo", UnitPrice: price("3.99"), Descriptor: "Electronics and travel items."},
		{ID: "orbit", Name: "Orbit", UnitPrice: price("4.99"), Descriptor: "Keys, handbags, or backpacks."},
		{ID: "pulse", Name: "Pulse", UnitPrice: price("4.99"), Descriptor: "Wallets, purses, or clutches."},
		{ID: "echo", Name: "Echo", UnitPrice: price("5.99"), Descriptor: "Keys and pockets."},
		{ID: "trek", Name: "Trek", UnitPrice: price("5.99"), Descriptor: "Bags, laptop cases, and totes."},
		{ID: "roam", Name: "Roam", UnitPrice: price("6.99"), Descriptor: "Suitcases and baggage."},
	},
	FinderRewardTiers: map[int]decimal.Decimal{
		0: price("0"),
		1: price("2.99"),
		2: price("3.99"),
	},
	ReturnCreditTiers: map[int]decimal.Decimal{
		0: price("0"),
		1: price("3.99"),
		3: price("6.99"),
	},
	ExtraContactTiers: map[int]decimal.Decimal{
		0: price("0"),
		1: price("0.99"),
		2: price("1.99"),
	},
}

// TagByID looks up a tag type from the table.
func (t PriceTable) TagByID(id string) (TagType, bool) {
	for _, tag := range t.TagTypes {
		if tag.ID == id {
			return tag, true
		}
	}
	return TagType{}, false
}

// CapacityLabel resolves the display label for a capacity tier. The label set
// must stay consistent with CapacityTiers (same key set); it is a reporting
// concern only and is never priced.
func CapacityLabel(capacity int) string {
	if capacity == 1 {
		return "Essential Plan"
	}
	if _, ok := Table.CapacityTiers[capacity]; ok {
		return fmt.Sprintf("Up to %d tags", capacity)
	}
	return fmt.Sprintf("Capacity %d", capacity)
}
