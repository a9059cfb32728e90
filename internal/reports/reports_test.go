package reports

import (
	"testing"
	"time"

	"github.com/glosspoint/glosspoint/internal/domain"
)

func order(day int, status domain.OrderStatus, price float64) domain.Order {
	return domain.Order{
		Status:    status,
		Services:  domain.ServiceSnapshots{{Name: "Mycie zewnętrzne", Price: price}},
		CreatedAt: time.Date(2025, 10, day, 12, 0, 0, 0, time.Local),
	}
}

func TestSummarizeSkipsCancelled(t *testing.T) {
	s := Summarize([]domain.Order{
		order(1, domain.StatusCompleted, 100),
		order(2, domain.StatusCompleted, 300),
		order(3, domain.StatusCancelled, 999),
	})
	if s.Orders != 3 || s.Cancelled != 1 {
		t.Fatalf("counts wrong: %+v", s)
	}
	if s.Revenue != 400 {
		t.Fatalf("cancelled orders must not add revenue: %+v", s)
	}
	if s.MeanValue != 200 || s.MedianValue != 200 {
		t.Fatalf("value stats wrong: %+v", s)
	}
}

func TestRevenueByDayGroupsAndSorts(t *testing.T) {
	rows := RevenueByDay([]domain.Order{
		order(2, domain.StatusCompleted, 150),
		order(1, domain.StatusNew, 100),
		order(1, domain.StatusCompleted, 250),
		order(1, domain.StatusCancelled, 500),
	})
	if len(rows) != 2 {
		t.Fatalf("expected two day buckets, got %+v", rows)
	}
	if rows[0].Period != "2025-10-01" || rows[0].Revenue != 350 || rows[0].Orders != 2 {
		t.Fatalf("first bucket wrong: %+v", rows[0])
	}
	if rows[1].Period != "2025-10-02" || rows[1].Revenue != 150 {
		t.Fatalf("second bucket wrong: %+v", rows[1])
	}
}

func TestRevenueByMonthEmptyInput(t *testing.T) {
	if rows := RevenueByMonth(nil); len(rows) != 0 {
		t.Fatalf("expected empty result, got %+v", rows)
	}
}

func TestStatusCountsCoversEveryStatus(t *testing.T) {
	counts := StatusCounts([]domain.Order{
		order(1, domain.StatusNew, 100),
		order(1, domain.StatusNew, 100),
		order(2, domain.StatusInProgress, 100),
	})
	if len(counts) != len(domain.StatusOptions) {
		t.Fatalf("every status must be present, got %v", counts)
	}
	if counts[string(domain.StatusNew)] != 2 || counts[string(domain.StatusInProgress)] != 1 {
		t.Fatalf("tallies wrong: %v", counts)
	}
	if counts[string(domain.StatusCompleted)] != 0 {
		t.Fatalf("unused statuses must be zero: %v", counts)
	}
}
