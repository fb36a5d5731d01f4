package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func modifier(groupID string, optionIDs ...string) SelectedModifier {
	m := SelectedModifier{
		GroupID:   groupID,
		GroupName: "Group " + groupID,
	}
	for _, id := range optionIDs {
		m.Options = append(m.Options, SelectedModifierOption{
			OptionID:        id,
			Name:            "Option " + id,
			PriceAdjustment: decimal.Zero,
		})
	}
	return m
}

func TestLineID_NoModifiers(t *testing.T) {
	assert.Equal(t, "pizza-1", LineID("pizza-1", nil))
	assert.Equal(t, "pizza-1", LineID("pizza-1", []SelectedModifier{modifier("size")}))
}

func TestLineID_SortsOptionIDs(t *testing.T) {
	a := LineID("pizza-1", []SelectedModifier{modifier("toppings", "olive", "cheese")})
	b := LineID("pizza-1", []SelectedModifier{modifier("toppings", "cheese", "olive")})

	assert.Equal(t, a, b)
	assert.Equal(t, "pizza-1-cheese-olive", a)
}

func TestLineID_SortsAcrossGroups(t *testing.T) {
	a := LineID("pizza-1", []SelectedModifier{
		modifier("size", "xl"),
		modifier("toppings", "cheese"),
	})
	b := LineID("pizza-1", []SelectedModifier{
		modifier("toppings", "cheese"),
		modifier("size", "xl"),
	})

	assert.Equal(t, a, b)
	assert.Equal(t, "pizza-1-cheese-xl", a)
}

func TestLineID_DistinctSelections(t *testing.T) {
	a := LineID("pizza-1", []SelectedModifier{modifier("toppings", "cheese")})
	b := LineID("pizza-1", []SelectedModifier{modifier("toppings", "olive")})

	assert.NotEqual(t, a, b)
}

func TestClone_Independent(t *testing.T) {
	table := "table-5"
	cart := Cart{
		Context: &CartContext{
			OrganizationID: "org-1",
			TableID:        &table,
			Currency:       "TRY",
		},
		Items: []CartItem{
			{
				ID:         "pizza-1",
				MenuItemID: "pizza-1",
				Quantity:   2,
				PriceAtAdd: decimal.NewFromInt(100),
				Modifiers:  []SelectedModifier{modifier("toppings", "cheese")},
			},
		},
	}

	clone := cart.Clone()
	clone.Items[0].Quantity = 9
	clone.Items[0].Modifiers[0].Options[0].OptionID = "mutated"
	*clone.Context.TableID = "table-9"

	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "cheese", cart.Items[0].Modifiers[0].Options[0].OptionID)
	assert.Equal(t, "table-5", *cart.Context.TableID)
}

func TestFindItem(t *testing.T) {
	cart := Cart{Items: []CartItem{{ID: "a"}, {ID: "b"}}}

	assert.Equal(t, 0, cart.FindItem("a"))
	assert.Equal(t, 1, cart.FindItem("b"))
	assert.Equal(t, -1, cart.FindItem("missing"))
}
