// Package conflict detects and resolves contradictory data points within a
// project: duplicates entered twice from different files, amount mismatches
// between documents describing the same event, and date disagreements.
package conflict

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"findex/internal/dateutils"
	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

// Config tunes the detector's matching rules.
type Config struct {
	// AmountTolerance is the relative difference below which two amounts are
	// considered equal, e.g. 0.02 for 2%.
	AmountTolerance float64
	// DuplicateWindowDays is the maximum date spread for two points to count
	// as the same entry recorded twice.
	DuplicateWindowDays int
	// SimilarityWindowDays is the maximum date spread for two points to be
	// compared for amount or date disagreement.
	SimilarityWindowDays int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		AmountTolerance:      0.02,
		DuplicateWindowDays:  1,
		SimilarityWindowDays: 5,
	}
}

// Detector scans a project's data points for contradictions. Scans run
// inside the store's per-project lock so concurrent inserts of conflicting
// points cannot both conclude there is no conflict.
type Detector struct {
	store  *store.DataPointStore
	cfg    Config
	logger logging.Logger
}

// NewDetector builds a detector over the given store.
func NewDetector(st *store.DataPointStore, cfg Config, logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if cfg.AmountTolerance <= 0 {
		cfg.AmountTolerance = DefaultConfig().AmountTolerance
	}
	if cfg.DuplicateWindowDays <= 0 {
		cfg.DuplicateWindowDays = DefaultConfig().DuplicateWindowDays
	}
	if cfg.SimilarityWindowDays <= 0 {
		cfg.SimilarityWindowDays = DefaultConfig().SimilarityWindowDays
	}
	return &Detector{store: st, cfg: cfg, logger: logger}
}

// match is one detected pairing between the new point and an existing one.
type match struct {
	existing  *models.DataPoint
	kind      models.ConflictType
	suggested models.ResolutionStrategy
}

// ScanNew compares a freshly inserted data point against every live point in
// its project and records any conflicts it finds. Matching an existing
// conflict group extends that group rather than opening a second one, so the
// same set of points always ends up in one group regardless of the order
// they arrived in.
func (d *Detector) ScanNew(ctx context.Context, dp *models.DataPoint) error {
	if dp.Superseded() {
		return nil
	}

	existing, err := d.store.QueryByProject(ctx, dp.ProjectID, store.QueryFilter{})
	if err != nil {
		return fmt.Errorf("conflict scan query failed: %w", err)
	}

	var matches []match
	for _, other := range existing {
		if other.ID == dp.ID {
			continue
		}
		if m, ok := d.compare(dp, other); ok {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	return d.record(ctx, dp, matches)
}

// compare applies the matching rules to one pair. Duplicate detection takes
// precedence over amount and date disagreement.
func (d *Detector) compare(a, b *models.DataPoint) (match, bool) {
	if d.isDuplicate(a, b) {
		return match{existing: b, kind: models.ConflictDuplicate, suggested: models.ResolveKeepFirst}, true
	}
	if !d.similarParty(a, b) {
		return match{}, false
	}
	if dateutils.WithinDays(a.Date, b.Date, d.cfg.SimilarityWindowDays) {
		if !d.amountsAgree(a.Amount, b.Amount) {
			return match{existing: b, kind: models.ConflictAmountMismatch, suggested: models.ResolveManualReview}, true
		}
		return match{}, false
	}
	// Same reference number pointing at clearly different dates.
	if a.InvoiceNo != "" && a.InvoiceNo == b.InvoiceNo && a.Amount.Amount.Equal(b.Amount.Amount) {
		return match{existing: b, kind: models.ConflictDateConflict, suggested: models.ResolveManualReview}, true
	}
	return match{}, false
}

// isDuplicate reports whether two points look like the same entry recorded
// twice: same party and amount, dates within the duplicate window, coming
// from different source files.
func (d *Detector) isDuplicate(a, b *models.DataPoint) bool {
	if a.Lineage.SourceFileID == b.Lineage.SourceFileID {
		return false
	}
	if !d.similarParty(a, b) {
		return false
	}
	if !a.Amount.Amount.Equal(b.Amount.Amount) || a.Amount.Currency != b.Amount.Currency {
		return false
	}
	return dateutils.WithinDays(a.Date, b.Date, d.cfg.DuplicateWindowDays)
}

// similarParty reports whether two points plausibly refer to the same
// counterparty, by vendor when both carry one and by description overlap
// otherwise.
func (d *Detector) similarParty(a, b *models.DataPoint) bool {
	if a.Vendor != "" && b.Vendor != "" {
		return normalize(a.Vendor) == normalize(b.Vendor)
	}
	return descriptionsOverlap(a.Description, b.Description)
}

// amountsAgree reports whether two amounts are within the relative tolerance
// of each other.
func (d *Detector) amountsAgree(a, b models.Money) bool {
	if a.Currency != b.Currency {
		return false
	}
	if a.Amount.Equal(b.Amount) {
		return true
	}
	larger := decimal.Max(a.Amount.Abs(), b.Amount.Abs())
	if larger.IsZero() {
		return true
	}
	diff := a.Amount.Sub(b.Amount).Abs()
	rel, _ := diff.Div(larger).Float64()
	return rel <= d.cfg.AmountTolerance
}

// record ties the new point and every one of its ungrouped matches into one
// conflict group: the existing group when any match already carries one
// (folding a second group in when the matches bridge two), a fresh group
// otherwise. No matched point is left untagged, since the scan for this
// pairing will never run again.
func (d *Detector) record(ctx context.Context, dp *models.DataPoint, matches []match) error {
	kind, suggested := dominant(matches)

	groupID := ""
	for _, m := range matches {
		existing := m.existing.ConflictGroupID
		if existing == "" {
			continue
		}
		if groupID == "" {
			groupID = existing
			continue
		}
		if err := d.store.MergeConflictGroups(ctx, groupID, existing); err != nil {
			return err
		}
	}

	if groupID == "" {
		members := []string{dp.ID}
		for _, m := range matches {
			members = append(members, m.existing.ID)
		}
		group := &models.ConflictGroup{
			ID:        uuid.New().String(),
			ProjectID: dp.ProjectID,
			MemberIDs: members,
			Type:      kind,
			Suggested: suggested,
		}
		if err := d.store.InsertConflictGroup(ctx, group); err != nil {
			return err
		}
		groupID = group.ID
		d.logger.Info("conflict group opened",
			logging.Field{Key: logging.FieldGroup, Value: groupID},
			logging.Field{Key: logging.FieldCount, Value: len(members)},
			logging.Field{Key: "type", Value: string(kind)})
	} else {
		if err := d.store.ExtendConflictGroup(ctx, groupID, dp.ID); err != nil {
			return err
		}
		for _, m := range matches {
			if m.existing.ConflictGroupID != "" {
				continue
			}
			if err := d.store.ExtendConflictGroup(ctx, groupID, m.existing.ID); err != nil {
				return err
			}
		}
		d.logger.Info("data point joined existing conflict group",
			logging.Field{Key: logging.FieldDataPoint, Value: dp.ID},
			logging.Field{Key: logging.FieldGroup, Value: groupID})
	}

	if err := d.store.TagConflict(ctx, dp.ID, groupID, kind == models.ConflictDuplicate); err != nil {
		return err
	}
	for _, m := range matches {
		if m.existing.ConflictGroupID != "" {
			continue
		}
		if err := d.store.TagConflict(ctx, m.existing.ID, groupID, m.kind == models.ConflictDuplicate); err != nil {
			return err
		}
	}
	return nil
}

// dominant picks the group classification when one insert pairs with several
// points: a duplicate outranks an amount mismatch, which outranks a date
// disagreement.
func dominant(matches []match) (models.ConflictType, models.ResolutionStrategy) {
	rank := map[models.ConflictType]int{
		models.ConflictDuplicate:      3,
		models.ConflictAmountMismatch: 2,
		models.ConflictDateConflict:   1,
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if rank[m.kind] > rank[best.kind] {
			best = m
		}
	}
	return best.kind, best.suggested
}

// normalize lowercases and collapses whitespace for party comparison.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// descriptionsOverlap reports whether two descriptions share at least half
// of the shorter one's significant words.
func descriptionsOverlap(a, b string) bool {
	wa := significantWords(a)
	wb := significantWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return false
	}
	set := make(map[string]bool, len(wa))
	for _, w := range wa {
		set[w] = true
	}
	shared := 0
	for _, w := range wb {
		if set[w] {
			shared++
		}
	}
	shorter := len(wa)
	if len(wb) < shorter {
		shorter = len(wb)
	}
	return shared*2 >= shorter
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "inc": true, "llc": true,
	"ltd": true, "co": true, "of": true, "to": true, "from": true,
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:#-()")
		if len(w) < 3 || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}
