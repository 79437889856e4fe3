package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Unknown replaces missing categorical values during dataset cleaning.
const Unknown = "Unknown"

type TradeType string

const (
	TradeTypeBuy     TradeType = "Buy"
	TradeTypeSell    TradeType = "Sell"
	TradeTypeUnknown TradeType = Unknown
)

// HoldingRow is one position at the as-of date. Numeric fields are
// zero-coerced at load time; categorical fields fall back to Unknown.
type HoldingRow struct {
	Fund         string
	Security     string
	SecurityType string
	Direction    string
	Strategy     string
	Custodian    string
	Qty          float64
	Price        float64
	MVLocal      float64
	MVBase       float64
	PLDaily      float64
	PLMonthly    float64
	PLQuarterly  float64
	PLYearly     float64
	AsOfDate     string
	OpenDate     string
	CloseDate    string
}

// TradeRow is one executed trade.
type TradeRow struct {
	Fund           string
	Security       string
	SecurityType   string
	TradeType      TradeType
	Strategy       string
	Custodian      string
	Counterparty   string
	Quantity       float64
	Price          float64
	Principal      float64
	TotalCash      float64
	AllocationCash float64
	TradeDate      string
	SettleDate     string
}

// Dataset holds both tables in memory. It is loaded once at process start
// and read-only afterwards; concurrent reads need no locking.
type Dataset struct {
	HoldingRows []HoldingRow
	TradeRows   []TradeRow
}

func (d *Dataset) Holdings() []HoldingRow { return d.HoldingRows }
func (d *Dataset) Trades() []TradeRow     { return d.TradeRows }

// FundNames returns every distinct fund identifier across both tables,
// in first-seen order.
func (d *Dataset) FundNames() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 16)
	add := func(fund string) {
		if _, ok := seen[fund]; ok {
			return
		}
		seen[fund] = struct{}{}
		out = append(out, fund)
	}
	for _, r := range d.HoldingRows {
		add(r.Fund)
	}
	for _, r := range d.TradeRows {
		add(r.Fund)
	}
	return out
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders v as a dollar amount with thousands grouping.
func FormatMoney(v float64) string {
	return moneyPrinter.Sprintf("$%.2f", v)
}

// FormatQuantity renders v as a whole number with thousands grouping.
func FormatQuantity(v float64) string {
	return moneyPrinter.Sprintf("%.0f", v)
}

// ChunkText renders the holding as the canonical retrievable text block.
func (r HoldingRow) ChunkText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Security: %s (%s)\n", r.Security, r.SecurityType)
	fmt.Fprintf(&b, "Portfolio: %s\n", r.Fund)
	fmt.Fprintf(&b, "Quantity: %s\n", FormatQuantity(r.Qty))
	fmt.Fprintf(&b, "Price: %s\n", FormatMoney(r.Price))
	fmt.Fprintf(&b, "Market Value (Base): %s\n", FormatMoney(r.MVBase))
	fmt.Fprintf(&b, "P&L Year-to-Date: %s\n", FormatMoney(r.PLYearly))
	fmt.Fprintf(&b, "P&L Quarter-to-Date: %s\n", FormatMoney(r.PLQuarterly))
	fmt.Fprintf(&b, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(&b, "Custodian: %s\n", r.Custodian)
	fmt.Fprintf(&b, "Direction: %s\n", r.Direction)
	fmt.Fprintf(&b, "Open Date: %s\n", r.OpenDate)
	b.WriteString("---")
	return b.String()
}

// ChunkText renders the trade as the canonical retrievable text block.
func (r TradeRow) ChunkText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trade Type: %s\n", r.TradeType)
	fmt.Fprintf(&b, "Security: %s (%s)\n", r.Security, r.SecurityType)
	fmt.Fprintf(&b, "Portfolio: %s\n", r.Fund)
	fmt.Fprintf(&b, "Quantity: %s\n", FormatQuantity(r.Quantity))
	fmt.Fprintf(&b, "Price: %s\n", FormatMoney(r.Price))
	fmt.Fprintf(&b, "Total Cash: %s\n", FormatMoney(r.TotalCash))
	fmt.Fprintf(&b, "Principal: %s\n", FormatMoney(r.Principal))
	fmt.Fprintf(&b, "Trade Date: %s\n", r.TradeDate)
	fmt.Fprintf(&b, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(&b, "Custodian: %s\n", r.Custodian)
	fmt.Fprintf(&b, "Counterparty: %s\n", r.Counterparty)
	b.WriteString("---")
	return b.String()
}
