// Package restock turns low-stock readings into purchase suggestions.
// Scoring blends how far below threshold a product sits with how fast it
// has been selling, so the buyer sees the most urgent gaps first.
package restock

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
)

type Suggestion struct {
	Product      domain.Product  `json:"product"`
	QtyRemaining decimal.Decimal `json:"quantity_remaining"`
	SuggestedQty decimal.Decimal `json:"suggested_quantity"`
	DailySales   decimal.Decimal `json:"daily_sales"`
	Urgency      float64         `json:"urgency"`
}

type Engine struct {
	// velocityWindow is how far back sales are sampled for run-rate.
	velocityWindow time.Duration
}

func NewEngine(velocityWindow time.Duration) *Engine {
	if velocityWindow <= 0 {
		velocityWindow = 7 * 24 * time.Hour
	}
	return &Engine{velocityWindow: velocityWindow}
}

// Suggest ranks low-stock items by urgency. Suggested quantity restores
// stock to twice the reorder threshold plus the sales expected before a
// typical three-day lead time elapses.
func (e *Engine) Suggest(lowStock []domain.LowStockItem, recentSales []domain.Transaction) []Suggestion {
	salesByProduct := sumSales(recentSales)
	days := decimal.NewFromFloat(e.velocityWindow.Hours() / 24)

	suggestions := make([]Suggestion, 0, len(lowStock))
	for _, item := range lowStock {
		sold := salesByProduct[item.Product.ID]
		daily := decimal.Zero
		if days.GreaterThan(decimal.Zero) {
			daily = sold.Div(days).Round(2)
		}

		target := item.Product.ReorderThreshold.Mul(decimal.NewFromInt(2)).
			Add(daily.Mul(decimal.NewFromInt(3)))
		suggested := target.Sub(item.QtyRemaining)
		if suggested.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if !item.Product.RequiresFractionalQuantity {
			suggested = suggested.Ceil()
		}

		suggestions = append(suggestions, Suggestion{
			Product:      item.Product,
			QtyRemaining: item.QtyRemaining,
			SuggestedQty: suggested,
			DailySales:   daily,
			Urgency:      urgency(item, daily),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Urgency == suggestions[j].Urgency {
			return suggestions[i].Product.Name < suggestions[j].Product.Name
		}
		return suggestions[i].Urgency > suggestions[j].Urgency
	})
	return suggestions
}

// urgency is 0..1: how depleted the product is relative to threshold,
// nudged up when it is selling.
func urgency(item domain.LowStockItem, daily decimal.Decimal) float64 {
	threshold, _ := item.Product.ReorderThreshold.Float64()
	remaining, _ := item.QtyRemaining.Float64()
	rate, _ := daily.Float64()

	depletion := 1.0
	if threshold > 0 {
		depletion = clamp(1-remaining/threshold, 0, 1)
	}
	velocity := clamp(rate/10.0, 0, 1)
	return round2(0.7*depletion + 0.3*velocity)
}

func sumSales(transactions []domain.Transaction) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		for _, item := range tx.Items {
			totals[item.ProductID] = totals[item.ProductID].Add(item.Quantity)
		}
	}
	return totals
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
