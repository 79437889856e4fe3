package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

func testDataset() *domain.Dataset {
	return &domain.Dataset{
		HoldingRows: []domain.HoldingRow{
			{Fund: "Garfield", Security: "MSFT", PLYearly: 100, PLQuarterly: 25, PLMonthly: 10, PLDaily: 1},
			{Fund: "Garfield", Security: "AAPL", PLYearly: 50},
			{Fund: "Heather", Security: "GOOG", PLYearly: 200},
			{Fund: "Platpot", Security: "TSLA", PLYearly: -30},
		},
		TradeRows: []domain.TradeRow{
			{Fund: "Garfield", TradeType: domain.TradeTypeBuy, TotalCash: 1000},
			{Fund: "Garfield", TradeType: domain.TradeTypeSell, TotalCash: -400},
			{Fund: "Heather", TradeType: domain.TradeTypeBuy, TotalCash: 700},
			{Fund: "HoldCo 1", TradeType: domain.TradeTypeUnknown, TotalCash: 50},
		},
	}
}

func TestComputeAggregatesIncludesEveryFund(t *testing.T) {
	engine := NewAggregateEngine(testDataset())
	report, err := engine.ComputeAggregates()
	if err != nil {
		t.Fatalf("ComputeAggregates() error = %v", err)
	}

	for _, fund := range []string{"Garfield", "Heather", "Platpot", "HoldCo 1"} {
		if !report.HasFund(fund) {
			t.Errorf("report missing fund %q", fund)
		}
	}
}

func TestComputeAggregatesStats(t *testing.T) {
	engine := NewAggregateEngine(testDataset())
	report, err := engine.ComputeAggregates()
	if err != nil {
		t.Fatalf("ComputeAggregates() error = %v", err)
	}

	garfield, ok := report.Fund("Garfield")
	if !ok {
		t.Fatalf("Garfield missing from report")
	}
	if garfield.PLYearly != 150 {
		t.Errorf("Garfield PLYearly = %v, want 150", garfield.PLYearly)
	}
	if garfield.PLYearlyAvg != 75 {
		t.Errorf("Garfield PLYearlyAvg = %v, want 75", garfield.PLYearlyAvg)
	}
	if garfield.HoldingsCount != 2 {
		t.Errorf("Garfield HoldingsCount = %d, want 2", garfield.HoldingsCount)
	}
	if garfield.TradeCount != 2 || garfield.BuyCount != 1 || garfield.SellCount != 1 {
		t.Errorf("Garfield trades = %d buy=%d sell=%d, want 2/1/1", garfield.TradeCount, garfield.BuyCount, garfield.SellCount)
	}
	if garfield.TotalCash != 600 {
		t.Errorf("Garfield TotalCash = %v, want 600", garfield.TotalCash)
	}

	holdco, _ := report.Fund("HoldCo 1")
	if holdco.HoldingsCount != 0 || holdco.TradeCount != 1 {
		t.Errorf("HoldCo 1 holdings=%d trades=%d, want 0/1", holdco.HoldingsCount, holdco.TradeCount)
	}
}

func TestFormatReportRankingIsMonotonic(t *testing.T) {
	engine := NewAggregateEngine(testDataset())
	report, _ := engine.ComputeAggregates()
	text := engine.FormatReport(report, "Which fund performed best?")

	var last float64
	first := true
	for i := range report.Funds {
		prefix := fmt.Sprintf("%d. ", i+1)
		line := findLineWithPrefix(t, text, prefix)
		value := parseRankedValue(t, line)
		if !first && value > last {
			t.Fatalf("ranking not monotonic: %v after %v in %q", value, last, line)
		}
		last = value
		first = false
	}
}

// parseRankedValue reads the dollar amount from "1. Heather: $200.00".
func parseRankedValue(t *testing.T, line string) float64 {
	t.Helper()
	idx := strings.LastIndex(line, "$")
	if idx < 0 {
		t.Fatalf("no value in ranked line %q", line)
	}
	var v float64
	raw := strings.ReplaceAll(line[idx+1:], ",", "")
	if _, err := fmt.Sscanf(raw, "%f", &v); err != nil {
		t.Fatalf("parse value from %q: %v", line, err)
	}
	return v
}

func findLineWithPrefix(t *testing.T, text, prefix string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			return strings.TrimSpace(line)
		}
	}
	t.Fatalf("no line with prefix %q in report", prefix)
	return ""
}

func TestFormatReportTotalFundsMatchesDataset(t *testing.T) {
	dataset := testDataset()
	engine := NewAggregateEngine(dataset)
	report, _ := engine.ComputeAggregates()
	text := engine.FormatReport(report, "Compare all funds")

	want := fmt.Sprintf("Total Funds: %d", len(dataset.FundNames()))
	if !strings.Contains(text, want) {
		t.Fatalf("report missing %q:\n%s", want, text)
	}
}

func TestFormatReportNeverTruncatesFundList(t *testing.T) {
	engine := NewAggregateEngine(testDataset())
	report, _ := engine.ComputeAggregates()
	text := engine.FormatReport(report, "Which fund performed best?")

	for _, s := range report.Funds {
		if !strings.Contains(text, s.Fund) {
			t.Errorf("report omits fund %q", s.Fund)
		}
	}
}

func TestFormatReportCashSectionOnlyWhenAsked(t *testing.T) {
	engine := NewAggregateEngine(testDataset())
	report, _ := engine.ComputeAggregates()

	withCash := engine.FormatReport(report, "What is the total cash across all funds?")
	if !strings.Contains(withCash, "=== Total Cash by Fund ===") {
		t.Fatalf("cash section missing when asked:\n%s", withCash)
	}

	withoutCash := engine.FormatReport(report, "Which fund performed best?")
	if strings.Contains(withoutCash, "=== Total Cash by Fund ===") {
		t.Fatalf("cash section present when not asked:\n%s", withoutCash)
	}
}

func TestFormatReportEmpty(t *testing.T) {
	engine := NewAggregateEngine(&domain.Dataset{})
	report, err := engine.ComputeAggregates()
	if err != nil {
		t.Fatalf("ComputeAggregates() error = %v", err)
	}
	if got := engine.FormatReport(report, "anything"); got != "No aggregation data available." {
		t.Fatalf("FormatReport() = %q", got)
	}
}

func TestFundSummary(t *testing.T) {
	engine := NewAggregateEngine(testDataset())

	summary, err := engine.FundSummary("Garfield")
	if err != nil {
		t.Fatalf("FundSummary() error = %v", err)
	}
	for _, want := range []string{"Fund: Garfield", "Holdings Count: 2", "Buy: 1, Sell: 1"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	if _, err := engine.FundSummary("Nobody"); !domain.IsKind(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData for unknown fund, got %v", err)
	}
}
