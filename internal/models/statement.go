package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// StatementLeaf is one summed line of an aggregated statement, annotated
// with the ids of every data point that contributed to it.
type StatementLeaf struct {
	Path         CategoryPath    `json:"path"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	DataPointIDs []string        `json:"data_point_ids"`
}

// StatementSection groups the leaves of one statement (balance sheet,
// income statement or cash flow), keyed by full category path.
type StatementSection struct {
	Leaves map[CategoryPath]*StatementLeaf `json:"leaves"`
}

// AggregatedStatement is the regenerable output of the aggregation engine.
// It is always derivable from the data points and is never a store of truth.
type AggregatedStatement struct {
	ProjectID    string                       `json:"project_id"`
	Currency     string                       `json:"currency"`
	Sections     map[string]*StatementSection `json:"sections"`
	Unclassified *StatementLeaf               `json:"unclassified,omitempty"`
	Warnings     []string                     `json:"warnings,omitempty"`
	GeneratedAt  time.Time                    `json:"generated_at"`
}

// SortedSectionNames returns section names in deterministic order.
func (s *AggregatedStatement) SortedSectionNames() []string {
	names := make([]string, 0, len(s.Sections))
	for name := range s.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedLeaves returns a section's leaves ordered by category path.
func (sec *StatementSection) SortedLeaves() []*StatementLeaf {
	leaves := make([]*StatementLeaf, 0, len(sec.Leaves))
	for _, leaf := range sec.Leaves {
		leaves = append(leaves, leaf)
	}
	sort.Slice(leaves, func(i, j int) bool {
		return leaves[i].Path < leaves[j].Path
	})
	return leaves
}

// SectionTotal sums every leaf of a section.
func (sec *StatementSection) SectionTotal() decimal.Decimal {
	total := decimal.Zero
	for _, leaf := range sec.Leaves {
		total = total.Add(leaf.Total)
	}
	return total
}
