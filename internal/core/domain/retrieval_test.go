package domain

import "testing"

func TestSummarizeMatches(t *testing.T) {
	stats := SummarizeMatches([]RetrievedMatch{
		{Score: 0.9, Fund: "Garfield"},
		{Score: 0.5, Fund: "Garfield"},
		{Score: 0.7, Fund: "Heather"},
	})
	if stats.Matches != 3 || stats.UniqueFunds != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.MinScore != 0.5 || stats.MaxScore != 0.9 {
		t.Fatalf("score range = [%v, %v]", stats.MinScore, stats.MaxScore)
	}
	if stats.AvgScore < 0.69 || stats.AvgScore > 0.71 {
		t.Fatalf("avg score = %v, want 0.7", stats.AvgScore)
	}
}

func TestSummarizeMatchesEmpty(t *testing.T) {
	if stats := SummarizeMatches(nil); stats.Matches != 0 {
		t.Fatalf("stats = %+v, want zero value", stats)
	}
}
