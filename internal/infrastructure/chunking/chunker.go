package chunking

import (
	"strings"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

// RowChunker groups a fund's pre-rendered rows into token-bounded chunks.
// Rows are never split: a row that alone exceeds the budget becomes its own
// chunk. Each chunk carries one fund and one source only, so the metadata
// filter used at search time stays exact.
type RowChunker struct {
	tokenBudget int
}

func NewRowChunker(tokenBudget int) *RowChunker {
	if tokenBudget <= 0 {
		tokenBudget = 500
	}
	return &RowChunker{tokenBudget: tokenBudget}
}

func (c *RowChunker) Chunk(fund string, source domain.Partition, rows []domain.ChunkRow) []domain.Chunk {
	if len(rows) == 0 {
		return nil
	}

	header := "Fund: " + fund + " | Source: " + string(source)
	headerTokens := estimateTokens(header)

	var out []domain.Chunk
	var batch []domain.ChunkRow
	budget := headerTokens

	flush := func() {
		if len(batch) == 0 {
			return
		}
		out = append(out, c.build(fund, source, header, batch))
		batch = nil
		budget = headerTokens
	}

	for _, row := range rows {
		cost := estimateTokens(row.Text)
		if len(batch) > 0 && budget+cost > c.tokenBudget {
			flush()
		}
		batch = append(batch, row)
		budget += cost
	}
	flush()
	return out
}

func (c *RowChunker) build(fund string, source domain.Partition, header string, rows []domain.ChunkRow) domain.Chunk {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, header)

	meta := domain.ChunkMetadata{
		Fund:     fund,
		Source:   source,
		RowCount: len(rows),
	}
	secTypes := make(map[string]struct{})
	tradeTypes := make(map[string]struct{})
	for _, row := range rows {
		lines = append(lines, row.Text)
		if row.SecurityType != "" {
			secTypes[row.SecurityType] = struct{}{}
		}
		if row.TradeType != "" {
			tradeTypes[string(row.TradeType)] = struct{}{}
		}
		if row.HasPL {
			meta.HasPL = true
		}
	}
	meta.SecurityTypes = capTypes(secTypes, 5)
	meta.TradeTypes = capTypes(tradeTypes, 5)

	return domain.Chunk{
		Text: strings.Join(lines, "\n"),
		Meta: meta,
	}
}

// capTypes keeps the metadata payload bounded for wide funds.
func capTypes(set map[string]struct{}, limit int) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

// estimateTokens approximates the embedding tokenizer at roughly four
// characters per token.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
