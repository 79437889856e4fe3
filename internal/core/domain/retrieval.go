package domain

import "time"

// Partition names a logical subdivision of the vector index.
type Partition string

const (
	PartitionHoldings Partition = "holdings"
	PartitionTrades   Partition = "trades"
)

// Partitions lists every partition, in search order.
func Partitions() []Partition {
	return []Partition{PartitionHoldings, PartitionTrades}
}

// QueryClass is the routing decision for an incoming question.
type QueryClass string

const (
	// QueryClassAggregation requires statistics over every fund in the
	// dataset; top-k similarity retrieval is unsound for these questions.
	QueryClassAggregation QueryClass = "aggregation"
	// QueryClassSpecific targets a particular fund or security and is
	// answered from semantic search.
	QueryClassSpecific QueryClass = "specific"
)

// SearchFilter is applied server-side by the similarity search capability.
type SearchFilter struct {
	HasPL bool
}

// ChunkMetadata describes the rows a chunk was derived from.
type ChunkMetadata struct {
	Fund          string
	Source        Partition
	RowCount      int
	SecurityTypes []string
	TradeTypes    []string
	HasPL         bool
}

// Chunk is the unit stored in and returned by the vector index.
type Chunk struct {
	Text string
	Meta ChunkMetadata
}

// ChunkRow is one pre-rendered dataset row handed to the chunker.
type ChunkRow struct {
	Text         string
	SecurityType string
	TradeType    TradeType
	HasPL        bool
}

// RetrievedMatch is one similarity hit. Ephemeral, never persisted.
type RetrievedMatch struct {
	ID       string
	Score    float64
	Fund     string
	Source   Partition
	RowCount int
	Text     string
}

// RetrievalStats summarizes a match list for logging and metrics.
type RetrievalStats struct {
	Matches     int
	UniqueFunds int
	MinScore    float64
	AvgScore    float64
	MaxScore    float64
}

func SummarizeMatches(matches []RetrievedMatch) RetrievalStats {
	if len(matches) == 0 {
		return RetrievalStats{}
	}
	funds := make(map[string]struct{}, len(matches))
	stats := RetrievalStats{
		Matches:  len(matches),
		MinScore: matches[0].Score,
		MaxScore: matches[0].Score,
	}
	var sum float64
	for _, m := range matches {
		funds[m.Fund] = struct{}{}
		sum += m.Score
		if m.Score < stats.MinScore {
			stats.MinScore = m.Score
		}
		if m.Score > stats.MaxScore {
			stats.MaxScore = m.Score
		}
	}
	stats.UniqueFunds = len(funds)
	stats.AvgScore = sum / float64(len(matches))
	return stats
}

// RoutedContext carries the routing decision together with the context it
// produced, so retrieval and answer assembly can never disagree on the class.
// Stats is zero-valued on the aggregation path.
type RoutedContext struct {
	Class   QueryClass
	Context string
	Stats   RetrievalStats
}

// Answer is the final result handed to the consumer. Error is populated
// only when retrieval failed; generation failures surface in Text. The
// instrumentation fields stay out of the wire format.
type Answer struct {
	Text      string     `json:"answer"`
	QueryType QueryClass `json:"query_type"`
	Error     string     `json:"error,omitempty"`

	RetrievedChunks int           `json:"-"`
	GenerationTime  time.Duration `json:"-"`
}
