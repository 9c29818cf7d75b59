package catalog

import (
	"context"
	"sort"
	"time"
)

// Reports are pure derived views computed by scanning the read model.
// They never touch upstream state.
type Reports struct {
	store Store
}

func NewReports(store Store) *Reports {
	return &Reports{store: store}
}

type CurrencyCount struct {
	Currency string  `json:"currency"`
	Count    int     `json:"count"`
	Amount   float64 `json:"amount"`
}

type Summary struct {
	Total      int              `json:"total"`
	Last24h    int              `json:"last_24h"`
	ByCurrency []CurrencyCount  `json:"by_currency"`
	Last10     []*ReceivedOrder `json:"last_10"`
}

func (r *Reports) Summary(ctx context.Context) (*Summary, error) {
	rows, err := r.store.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	summary := &Summary{Total: len(rows)}
	for _, row := range rows {
		if row.ReceivedAt.After(since) {
			summary.Last24h++
		}
	}
	summary.ByCurrency = groupByCurrency(rows)

	last := rows
	if len(last) > 10 {
		last = last[:10]
	}
	summary.Last10 = last
	return summary, nil
}

type Totals struct {
	Count      int             `json:"count"`
	Amount     float64         `json:"amount"`
	ByCurrency []CurrencyCount `json:"by_currency"`
}

func (r *Reports) Totals(ctx context.Context) (*Totals, error) {
	rows, err := r.store.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	totals := &Totals{Count: len(rows)}
	for _, row := range rows {
		totals.Amount += row.Amount
	}
	totals.ByCurrency = groupByCurrency(rows)
	return totals, nil
}

type CustomerTotal struct {
	CustomerID string  `json:"customer_id"`
	Orders     int     `json:"orders"`
	Amount     float64 `json:"amount"`
}

// TopCustomers returns the n customers with the highest total amount.
func (r *Reports) TopCustomers(ctx context.Context, n int) ([]CustomerTotal, error) {
	rows, err := r.store.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[string]*CustomerTotal)
	for _, row := range rows {
		c, ok := byCustomer[row.CustomerID]
		if !ok {
			c = &CustomerTotal{CustomerID: row.CustomerID}
			byCustomer[row.CustomerID] = c
		}
		c.Orders++
		c.Amount += row.Amount
	}

	customers := make([]CustomerTotal, 0, len(byCustomer))
	for _, c := range byCustomer {
		customers = append(customers, *c)
	}
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].Amount != customers[j].Amount {
			return customers[i].Amount > customers[j].Amount
		}
		return customers[i].CustomerID < customers[j].CustomerID
	})
	if n > 0 && len(customers) > n {
		customers = customers[:n]
	}
	return customers, nil
}

type DailyVolume struct {
	Day    string  `json:"day"`
	Orders int     `json:"orders"`
	Amount float64 `json:"amount"`
}

// Daily returns per-day volume for the last n days, oldest first. Days
// without orders are included with zero counts.
func (r *Reports) Daily(ctx context.Context, n int) ([]DailyVolume, error) {
	rows, err := r.store.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*DailyVolume)
	for _, row := range rows {
		day := row.ReceivedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DailyVolume{Day: day}
			byDay[day] = d
		}
		d.Orders++
		d.Amount += row.Amount
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	days := make([]DailyVolume, 0, n)
	for i := n - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		if d, ok := byDay[day]; ok {
			days = append(days, *d)
		} else {
			days = append(days, DailyVolume{Day: day})
		}
	}
	return days, nil
}

// Recent returns the n most recently received orders.
func (r *Reports) Recent(ctx context.Context, n int) ([]*ReceivedOrder, error) {
	return r.store.List(ctx, n)
}

func groupByCurrency(rows []*ReceivedOrder) []CurrencyCount {
	byCurrency := make(map[string]*CurrencyCount)
	for _, row := range rows {
		c, ok := byCurrency[row.Currency]
		if !ok {
			c = &CurrencyCount{Currency: row.Currency}
			byCurrency[row.Currency] = c
		}
		c.Count++
		c.Amount += row.Amount
	}

	counts := make([]CurrencyCount, 0, len(byCurrency))
	for _, c := range byCurrency {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Currency < counts[j].Currency
	})
	return counts
}
