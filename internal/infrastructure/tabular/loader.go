package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ovolkov/fund-insight/internal/core/domain"
	"github.com/ovolkov/fund-insight/internal/core/ports"
)

// Loader reads a holdings/trades pair from object storage and cleans it
// into a domain.Dataset. CSV and XLSX are told apart by file extension.
//
// Cleaning rules: NULL/null/empty cells are treated as absent; absent
// categoricals become Unknown, absent CloseDate becomes "Open", and
// numeric cells that fail to parse become 0. Missing columns are
// tolerated, the affected fields keep their fallback for every row.
type Loader struct {
	storage ports.ObjectStorage
}

func NewLoader(storage ports.ObjectStorage) *Loader {
	return &Loader{storage: storage}
}

func (l *Loader) Load(ctx context.Context, holdingsKey, tradesKey string) (*domain.Dataset, error) {
	holdings, err := l.loadTable(ctx, holdingsKey)
	if err != nil {
		return nil, fmt.Errorf("load holdings table: %w", err)
	}
	trades, err := l.loadTable(ctx, tradesKey)
	if err != nil {
		return nil, fmt.Errorf("load trades table: %w", err)
	}

	return &domain.Dataset{
		HoldingRows: holdingRows(holdings),
		TradeRows:   tradeRows(trades),
	}, nil
}

func (l *Loader) loadTable(ctx context.Context, key string) (*table, error) {
	r, err := l.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var records [][]string
	if strings.EqualFold(filepath.Ext(key), ".xlsx") {
		records, err = readXLSX(r)
	} else {
		records, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}
	return newTable(records), nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return records, nil
}

// table gives named-column access over a header-plus-records grid.
type table struct {
	index map[string]int
	rows  [][]string
}

func newTable(records [][]string) *table {
	t := &table{index: make(map[string]int)}
	if len(records) == 0 {
		return t
	}
	for i, name := range records[0] {
		t.index[strings.TrimSpace(name)] = i
	}
	t.rows = records[1:]
	return t
}

var naValues = map[string]bool{"": true, "NULL": true, "null": true}

// cell returns the cleaned value of the named column, or "" when the
// column is missing or the cell holds a NA marker.
func (t *table) cell(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if naValues[v] {
		return ""
	}
	return v
}

func (t *table) text(row []string, column, fallback string) string {
	if v := t.cell(row, column); v != "" {
		return v
	}
	return fallback
}

func (t *table) number(row []string, column string) float64 {
	v := t.cell(row, column)
	if v == "" {
		return 0
	}
	v = strings.ReplaceAll(v, ",", "")
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return n
}

func holdingRows(t *table) []domain.HoldingRow {
	out := make([]domain.HoldingRow, 0, len(t.rows))
	for _, row := range t.rows {
		fund := t.cell(row, "PortfolioName")
		if fund == "" {
			continue
		}
		out = append(out, domain.HoldingRow{
			Fund:         fund,
			Security:     t.text(row, "SecName", domain.Unknown),
			SecurityType: t.text(row, "SecurityTypeName", domain.Unknown),
			Direction:    t.text(row, "DirectionName", domain.Unknown),
			Strategy:     t.text(row, "Strategy1RefShortName", domain.Unknown),
			Custodian:    t.text(row, "CustodianName", domain.Unknown),
			Qty:          t.number(row, "Qty"),
			Price:        t.number(row, "Price"),
			MVLocal:      t.number(row, "MV_Local"),
			MVBase:       t.number(row, "MV_Base"),
			PLDaily:      t.number(row, "PL_DTD"),
			PLMonthly:    t.number(row, "PL_MTD"),
			PLQuarterly:  t.number(row, "PL_QTD"),
			PLYearly:     t.number(row, "PL_YTD"),
			AsOfDate:     t.cell(row, "AsOfDate"),
			OpenDate:     t.cell(row, "OpenDate"),
			CloseDate:    t.text(row, "CloseDate", "Open"),
		})
	}
	return out
}

func tradeRows(t *table) []domain.TradeRow {
	out := make([]domain.TradeRow, 0, len(t.rows))
	for _, row := range t.rows {
		fund := t.cell(row, "PortfolioName")
		if fund == "" {
			continue
		}
		out = append(out, domain.TradeRow{
			Fund:           fund,
			Security:       t.text(row, "Name", domain.Unknown),
			SecurityType:   t.text(row, "SecurityType", domain.Unknown),
			TradeType:      tradeType(t.cell(row, "TradeTypeName")),
			Strategy:       t.text(row, "Strategy1Name", domain.Unknown),
			Custodian:      t.text(row, "CustodianName", domain.Unknown),
			Counterparty:   t.text(row, "Counterparty", domain.Unknown),
			Quantity:       t.number(row, "Quantity"),
			Price:          t.number(row, "Price"),
			Principal:      t.number(row, "Principal"),
			TotalCash:      t.number(row, "TotalCash"),
			AllocationCash: t.number(row, "AllocationCash"),
			TradeDate:      t.cell(row, "TradeDate"),
			SettleDate:     t.cell(row, "SettleDate"),
		})
	}
	return out
}

func tradeType(v string) domain.TradeType {
	switch v {
	case "Buy":
		return domain.TradeTypeBuy
	case "Sell":
		return domain.TradeTypeSell
	case "":
		return domain.TradeTypeUnknown
	default:
		return domain.TradeType(v)
	}
}
