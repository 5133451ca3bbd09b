package pos

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/mgcaisse/caisse/pkg/common"
)

// SalesSummary aggregates the history panel figures over a date range.
type SalesSummary struct {
	Count      int     `json:"count"`
	Total      float64 `json:"total"`
	MeanBasket float64 `json:"mean_basket"`
	MaxBasket  float64 `json:"max_basket"`
}

// Summarize computes count, turnover and basket statistics for sales within
// [start, end].
func (s *SaleService) Summarize(ctx context.Context, start, end time.Time) (*SalesSummary, error) {
	sales, err := s.store.GetSales(ctx, start, end)
	if err != nil {
		return nil, err
	}

	summary := &SalesSummary{Count: len(sales)}
	if len(sales) == 0 {
		return summary, nil
	}

	totals := make([]float64, 0, len(sales))
	for _, sale := range sales {
		totals = append(totals, sale.Total)
	}
	sum, _ := stats.Sum(totals)
	mean, _ := stats.Mean(totals)
	max, _ := stats.Max(totals)
	summary.Total = common.RoundCurrency(sum)
	summary.MeanBasket = common.RoundCurrency(mean)
	summary.MaxBasket = common.RoundCurrency(max)
	return summary, nil
}
