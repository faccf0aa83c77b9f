package cart

import (
	"testing"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
)

func gramProduct(id, name string, price int64) domain.Product {
	return domain.Product{
		ID:                         id,
		SKU:                        "SKU-" + id,
		Name:                       name,
		Unit:                       "gram",
		BasePrice:                  decimal.NewFromInt(price),
		RequiresFractionalQuantity: true,
		Active:                     true,
	}
}

func unitProduct(id, name string, price int64) domain.Product {
	return domain.Product{
		ID:        id,
		SKU:       "SKU-" + id,
		Name:      name,
		Unit:      "unit",
		BasePrice: decimal.NewFromInt(price),
		Active:    true,
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	c := New()
	p := unitProduct("p1", "Preroll", 400)

	c.AddItem(p, decimal.NewFromInt(2))
	c.AddItem(p, decimal.NewFromInt(3))

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !lines[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected quantity 5, got %s", lines[0].Quantity)
	}
	if !lines[0].LineTotal.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected line total 2000, got %s", lines[0].LineTotal)
	}
}

func TestAddItemKeepsCapturedUnitPrice(t *testing.T) {
	c := New()
	p := unitProduct("p1", "Preroll", 400)
	c.AddItem(p, decimal.NewFromInt(2))

	// Catalog price changes after first add; the line keeps the old price.
	p.BasePrice = decimal.NewFromInt(999)
	c.AddItem(p, decimal.NewFromInt(3))

	line := c.Lines()[0]
	if !line.UnitPrice.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected captured unit price 400, got %s", line.UnitPrice)
	}
	if !line.LineTotal.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected line total 2000, got %s", line.LineTotal)
	}
}

func TestUpdateQuantityRejectsNonPositive(t *testing.T) {
	c := New()
	p := unitProduct("p1", "Preroll", 400)
	c.AddItem(p, decimal.NewFromInt(5))

	c.UpdateQuantity("p1", decimal.Zero)

	line := c.Lines()[0]
	if !line.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected quantity unchanged at 5, got %s", line.Quantity)
	}
	msg, ok := c.ValidationError("p1")
	if !ok {
		t.Fatal("expected validation error after zero quantity update")
	}
	if msg != "Quantity must be at least 1" {
		t.Fatalf("unexpected validation message: %q", msg)
	}

	// A valid update clears the error.
	c.UpdateQuantity("p1", decimal.NewFromInt(3))
	if _, ok := c.ValidationError("p1"); ok {
		t.Fatal("expected validation error cleared by valid update")
	}
	if !c.Lines()[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected quantity 3, got %s", c.Lines()[0].Quantity)
	}
}

func TestUpdateQuantityRoundsFractional(t *testing.T) {
	c := New()
	c.AddItem(gramProduct("p1", "Flower", 400), decimal.NewFromInt(1))

	c.UpdateQuantity("p1", decimal.NewFromFloat(3.567))

	line := c.Lines()[0]
	if !line.Quantity.Equal(decimal.NewFromFloat(3.6)) {
		t.Fatalf("expected update to round 3.567 -> 3.6, got %s", line.Quantity)
	}
	if !line.LineTotal.Equal(decimal.NewFromInt(1440)) {
		t.Fatalf("expected line total 1440, got %s", line.LineTotal)
	}
}

func TestSetValidationErrorEmptyMessageRetracts(t *testing.T) {
	c := New()
	c.AddItem(unitProduct("p1", "Preroll", 400), decimal.NewFromInt(2))

	c.SetValidationError("p1", "Only 1 unit available")
	if _, ok := c.ValidationError("p1"); !ok {
		t.Fatal("expected validation error to be set")
	}

	c.SetValidationError("p1", "")
	if msg, ok := c.ValidationError("p1"); ok {
		t.Fatalf("expected empty message to retract the error, still have %q", msg)
	}
}

func TestNormalizeQuantityRounding(t *testing.T) {
	frac := gramProduct("p1", "Flower", 400)
	whole := unitProduct("p2", "Preroll", 150)

	got := NormalizeQuantity(frac, decimal.NewFromFloat(3.567))
	if !got.Equal(decimal.NewFromFloat(3.6)) {
		t.Fatalf("expected 3.567 -> 3.6 for fractional product, got %s", got)
	}
	got = NormalizeQuantity(whole, decimal.NewFromFloat(3.5))
	if !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected 3.5 -> 4 for whole-unit product, got %s", got)
	}
	got = NormalizeQuantity(whole, decimal.NewFromFloat(3.4))
	if !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3.4 -> 3 for whole-unit product, got %s", got)
	}
	got = NormalizeQuantity(whole, decimal.Zero)
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected non-positive add quantity to normalize to 1, got %s", got)
	}
}

func TestSubtotalLifecycle(t *testing.T) {
	c := New()
	if !c.Subtotal().Equal(decimal.Zero) {
		t.Fatalf("expected empty cart subtotal 0, got %s", c.Subtotal())
	}

	c.AddItem(unitProduct("p1", "Preroll", 800), decimal.NewFromInt(1))
	c.AddItem(unitProduct("p2", "Edible", 450), decimal.NewFromInt(1))
	if !c.Subtotal().Equal(decimal.NewFromInt(1250)) {
		t.Fatalf("expected subtotal 1250, got %s", c.Subtotal())
	}

	c.RemoveItem("p2")
	if !c.Subtotal().Equal(decimal.NewFromInt(800)) {
		t.Fatalf("expected subtotal 800 after removal, got %s", c.Subtotal())
	}
}

func TestRemoveItemClearsValidationError(t *testing.T) {
	c := New()
	c.AddItem(unitProduct("p1", "Preroll", 400), decimal.NewFromInt(2))
	c.SetValidationError("p1", "Only 1 unit available")

	c.RemoveItem("p1")
	if _, ok := c.ValidationError("p1"); ok {
		t.Fatal("expected validation error removed with the line")
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cart, got %d lines", c.Len())
	}

	// Removing something that is not there does nothing.
	c.RemoveItem("ghost")
}

func TestClearResetsLinesAndErrors(t *testing.T) {
	c := New()
	c.AddItem(unitProduct("p1", "Preroll", 400), decimal.NewFromInt(2))
	c.SetValidationError("p1", "Only 1 unit available")

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected cleared cart, got %d lines", c.Len())
	}
	if _, ok := c.ValidationError("p1"); ok {
		t.Fatal("expected errors cleared")
	}
	if !c.Subtotal().Equal(decimal.Zero) {
		t.Fatalf("expected subtotal 0 after clear, got %s", c.Subtotal())
	}
}

func TestFractionalQuantityAddRounds(t *testing.T) {
	c := New()
	c.AddItem(gramProduct("p1", "Flower", 400), decimal.NewFromFloat(2.34))

	line := c.Lines()[0]
	if !line.Quantity.Equal(decimal.NewFromFloat(2.3)) {
		t.Fatalf("expected quantity rounded to 2.3, got %s", line.Quantity)
	}
	if !line.LineTotal.Equal(decimal.NewFromInt(920)) {
		t.Fatalf("expected line total 920, got %s", line.LineTotal)
	}
}
