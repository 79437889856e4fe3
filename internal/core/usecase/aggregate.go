package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ovolkov/fund-insight/internal/core/domain"
	"github.com/ovolkov/fund-insight/internal/core/ports"
)

// AggregateEngine computes per-fund statistics over the full, unfiltered
// dataset. By construction it cannot omit a fund, which is the correctness
// property that distinguishes this path from top-k semantic retrieval.
type AggregateEngine struct {
	dataset ports.DatasetProvider
}

func NewAggregateEngine(dataset ports.DatasetProvider) *AggregateEngine {
	return &AggregateEngine{dataset: dataset}
}

// ComputeAggregates groups Holdings and Trades by fund and computes the
// fixed statistic set. Reports are recomputed per query, never cached:
// recomputation is cheap relative to a generation round trip.
func (e *AggregateEngine) ComputeAggregates() (domain.AggregateReport, error) {
	if e.dataset == nil {
		return domain.AggregateReport{}, fmt.Errorf("aggregate: no dataset loaded")
	}

	byFund := make(map[string]*domain.FundStats)
	order := make([]string, 0, 16)
	stats := func(fund string) *domain.FundStats {
		if s, ok := byFund[fund]; ok {
			return s
		}
		s := &domain.FundStats{Fund: fund}
		byFund[fund] = s
		order = append(order, fund)
		return s
	}

	for _, row := range e.dataset.Holdings() {
		s := stats(row.Fund)
		s.PLDaily += row.PLDaily
		s.PLMonthly += row.PLMonthly
		s.PLQuarterly += row.PLQuarterly
		s.PLYearly += row.PLYearly
		s.HoldingsCount++
	}
	for _, row := range e.dataset.Trades() {
		s := stats(row.Fund)
		s.TradeCount++
		switch row.TradeType {
		case domain.TradeTypeBuy:
			s.BuyCount++
		case domain.TradeTypeSell:
			s.SellCount++
		}
		s.TotalCash += row.TotalCash
	}

	report := domain.AggregateReport{Funds: make([]domain.FundStats, 0, len(order))}
	for _, fund := range order {
		s := byFund[fund]
		if s.HoldingsCount > 0 {
			s.PLYearlyAvg = s.PLYearly / float64(s.HoldingsCount)
		}
		report.Funds = append(report.Funds, *s)
	}
	return report, nil
}

// FormatReport renders the complete ranked report. Every fund appears in
// the ranking; the list is never truncated. The cash section is included
// only when the question asks about total cash.
func (e *AggregateEngine) FormatReport(report domain.AggregateReport, question string) string {
	if len(report.Funds) == 0 {
		return "No aggregation data available."
	}

	ranked := make([]domain.FundStats, len(report.Funds))
	copy(ranked, report.Funds)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PLYearly > ranked[j].PLYearly
	})

	var b strings.Builder
	b.WriteString("=== COMPLETE Fund Performance Rankings (Yearly P&L) ===\n")
	b.WriteString("This includes ALL funds in the dataset:\n\n")
	for i, s := range ranked {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, s.Fund, domain.FormatMoney(s.PLYearly))
	}
	fmt.Fprintf(&b, "\nTotal Funds: %d\n", len(ranked))

	b.WriteString("\n\n=== Holdings Count by Fund ===\n")
	for _, s := range sortedBy(report.Funds, func(s domain.FundStats) float64 { return float64(s.HoldingsCount) }) {
		if s.HoldingsCount == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s: %d holdings\n", s.Fund, s.HoldingsCount)
	}

	b.WriteString("\n\n=== Trade Count by Fund ===\n")
	for _, s := range sortedBy(report.Funds, func(s domain.FundStats) float64 { return float64(s.TradeCount) }) {
		if s.TradeCount == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s: %d trades\n", s.Fund, s.TradeCount)
	}

	q := strings.ToLower(question)
	if strings.Contains(q, "total") && strings.Contains(q, "cash") {
		b.WriteString("\n\n=== Total Cash by Fund ===\n")
		for _, s := range sortedBy(report.Funds, func(s domain.FundStats) float64 { return s.TotalCash }) {
			fmt.Fprintf(&b, "  %s: %s\n", s.Fund, domain.FormatMoney(s.TotalCash))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// FundSummary renders the statistics of one fund, for specific lookups.
func (e *AggregateEngine) FundSummary(fund string) (string, error) {
	report, err := e.ComputeAggregates()
	if err != nil {
		return "", err
	}
	s, ok := report.Fund(fund)
	if !ok {
		return "", domain.WrapError(domain.ErrNoData, "fund summary", fmt.Errorf("unknown fund %q", fund))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fund: %s\n", s.Fund)
	if s.HoldingsCount > 0 {
		fmt.Fprintf(&b, "Holdings Count: %d\n", s.HoldingsCount)
		fmt.Fprintf(&b, "Total P&L YTD: %s\n", domain.FormatMoney(s.PLYearly))
		fmt.Fprintf(&b, "Avg P&L YTD: %s\n", domain.FormatMoney(s.PLYearlyAvg))
	}
	if s.TradeCount > 0 {
		fmt.Fprintf(&b, "Trade Count: %d\n", s.TradeCount)
		fmt.Fprintf(&b, "  Buy: %d, Sell: %d\n", s.BuyCount, s.SellCount)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func sortedBy(funds []domain.FundStats, key func(domain.FundStats) float64) []domain.FundStats {
	out := make([]domain.FundStats, len(funds))
	copy(out, funds)
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) > key(out[j])
	})
	return out
}
