// Package reports computes revenue aggregates for the dashboard and the
// export endpoints.
package reports

import (
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/montanaflynn/stats"

	"github.com/glosspoint/glosspoint/internal/domain"
)

// RevenueRow is one bucket of the revenue aggregation.
type RevenueRow struct {
	Period  string  `json:"period"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// Summary condenses the billed orders into headline numbers. Cancelled
// orders never count towards revenue.
type Summary struct {
	Orders      int     `json:"orders"`
	Cancelled   int     `json:"cancelled"`
	Revenue     float64 `json:"revenue"`
	MeanValue   float64 `json:"mean_value"`
	MedianValue float64 `json:"median_value"`
}

func billed(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != domain.StatusCancelled {
			out = append(out, o)
		}
	}
	return out
}

// Summarize computes order counts and value statistics.
func Summarize(orders []domain.Order) Summary {
	s := Summary{Orders: len(orders)}
	var totals []float64
	for _, o := range orders {
		if o.Status == domain.StatusCancelled {
			s.Cancelled++
			continue
		}
		t := o.Total()
		s.Revenue += t
		totals = append(totals, t)
	}
	if len(totals) > 0 {
		s.MeanValue, _ = stats.Mean(totals)
		s.MedianValue, _ = stats.Median(totals)
	}
	return s
}

// RevenueByDay groups billed orders on the local calendar day.
func RevenueByDay(orders []domain.Order) []RevenueRow {
	return revenueBy(orders, "2006-01-02")
}

// RevenueByMonth groups billed orders on the calendar month.
func RevenueByMonth(orders []domain.Order) []RevenueRow {
	return revenueBy(orders, "2006-01")
}

func revenueBy(orders []domain.Order, layout string) []RevenueRow {
	rows := billed(orders)
	if len(rows) == 0 {
		return []RevenueRow{}
	}

	periods := make([]string, 0, len(rows))
	totals := make([]float64, 0, len(rows))
	for _, o := range rows {
		periods = append(periods, o.CreatedAt.Local().Format(layout))
		totals = append(totals, o.Total())
	}

	df := dataframe.New(
		series.New(periods, series.String, "period"),
		series.New(totals, series.Float, "total"),
	)
	agg := df.GroupBy("period").Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_SUM, dataframe.Aggregation_COUNT},
		[]string{"total", "total"},
	)
	agg = agg.Arrange(dataframe.Sort("period"))

	out := make([]RevenueRow, 0, agg.Nrow())
	records := agg.Records()
	idx := columnIndex(records[0])
	for _, rec := range records[1:] {
		revenue, _ := strconv.ParseFloat(rec[idx["total_SUM"]], 64)
		count, _ := strconv.ParseFloat(rec[idx["total_COUNT"]], 64)
		out = append(out, RevenueRow{
			Period:  rec[idx["period"]],
			Revenue: revenue,
			Orders:  int(count),
		})
	}
	return out
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

// StatusCounts tallies orders per status in the fixed domain order.
func StatusCounts(orders []domain.Order) map[string]int {
	counts := make(map[string]int, len(domain.StatusOptions))
	for _, st := range domain.StatusOptions {
		counts[string(st)] = 0
	}
	for _, o := range orders {
		counts[string(o.Status)]++
	}
	return counts
}
