package domain

// FundStats is the fixed set of statistics computed per fund.
type FundStats struct {
	Fund string

	PLDaily     float64
	PLMonthly   float64
	PLQuarterly float64
	PLYearly    float64
	PLYearlyAvg float64

	HoldingsCount int
	TradeCount    int
	BuyCount      int
	SellCount     int
	TotalCash     float64
}

// AggregateReport maps every fund in the dataset to its statistics.
// Funds preserves first-seen dataset order, which doubles as the tie-break
// for equal ranking values.
type AggregateReport struct {
	Funds []FundStats
}

func (r AggregateReport) HasFund(fund string) bool {
	for _, s := range r.Funds {
		if s.Fund == fund {
			return true
		}
	}
	return false
}

func (r AggregateReport) Fund(fund string) (FundStats, bool) {
	for _, s := range r.Funds {
		if s.Fund == fund {
			return s, true
		}
	}
	return FundStats{}, false
}
