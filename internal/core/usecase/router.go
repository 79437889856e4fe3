package usecase

import (
	"regexp"
	"strings"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

// ClassificationRule is one ordered entry of the routing rule table.
// First match wins, so broader patterns belong later in the table.
type ClassificationRule struct {
	Name    string
	Pattern *regexp.Regexp
	Class   domain.QueryClass
}

// DefaultClassificationRules signal cross-fund comparison or ranking intent.
// A question matching none of them is answered from semantic search.
func DefaultClassificationRules() []ClassificationRule {
	agg := func(name, pattern string) ClassificationRule {
		return ClassificationRule{
			Name:    name,
			Pattern: regexp.MustCompile(pattern),
			Class:   domain.QueryClassAggregation,
		}
	}
	return []ClassificationRule{
		agg("which-fund-best", `which fund.*best`),
		agg("which-fund-performed", `which fund.*performed`),
		agg("which-fund-better", `which fund.*better`),
		agg("compare-funds", `compare.*funds`),
		agg("top-funds", `top.*funds`),
		agg("rank-funds", `rank.*funds`),
		agg("all-funds", `all funds`),
		agg("fund-performance", `fund performance`),
		agg("best-yearly-pl", `best.*yearly.*p[&/]l`),
		agg("highest-pl", `highest.*p[&/]l`),
		agg("lowest-pl", `lowest.*p[&/]l`),
		agg("funds-better", `funds.*better`),
		agg("funds-worse", `funds.*worse`),
		agg("total-all-funds", `total.*all funds`),
		agg("aggregate-funds", `aggregate.*funds`),
	}
}

// QueryRouter classifies questions with a fixed ordered rule table. It is a
// deliberately cheap, auditable heuristic, not a learned classifier.
type QueryRouter struct {
	rules []ClassificationRule
}

func NewQueryRouter(rules []ClassificationRule) *QueryRouter {
	if len(rules) == 0 {
		rules = DefaultClassificationRules()
	}
	return &QueryRouter{rules: rules}
}

// Classify is a pure function of the question text.
func (r *QueryRouter) Classify(question string) domain.QueryClass {
	q := strings.ToLower(question)
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(q) {
			return rule.Class
		}
	}
	return domain.QueryClassSpecific
}

// Rules exposes the active table for inspection.
func (r *QueryRouter) Rules() []ClassificationRule {
	return r.rules
}
