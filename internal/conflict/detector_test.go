package conflict

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

func newTestStore(t *testing.T) *store.DataPointStore {
	t.Helper()
	s, err := store.NewDataPointStore(filepath.Join(t.TempDir(), "findex.db"), logging.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func point(project, file, vendor, desc string, amount float64, day string) *models.DataPoint {
	d, _ := time.Parse("2006-01-02", day)
	return &models.DataPoint{
		ProjectID:   project,
		Lineage:     models.Lineage{SourceFileID: file, SourceFileName: file + ".pdf", SourceFileType: models.FileTypePDF},
		Type:        models.TypeCost,
		Date:        &d,
		Description: desc,
		Amount:      models.NewMoneyFromFloat(amount, "USD"),
		Vendor:      vendor,
	}
}

func insertAndScan(t *testing.T, s *store.DataPointStore, d *Detector, dp *models.DataPoint) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WithProjectLock(dp.ProjectID, func() error {
		if err := s.Insert(ctx, dp); err != nil {
			return err
		}
		return d.ScanNew(ctx, dp)
	}))
}

func TestDetector_DuplicateAcrossFiles(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())
	ctx := context.Background()

	// The same ACME invoice entered from the invoice PDF and again from the
	// bank statement a day later.
	a := point("riverside", "invoice-pdf", "ACME Concrete", "Concrete pour foundation", 4500, "2024-03-15")
	b := point("riverside", "bank-stmt", "ACME Concrete", "ACME Concrete payment", 4500, "2024-03-16")
	insertAndScan(t, s, d, a)
	insertAndScan(t, s, d, b)

	groups, err := s.ListConflictGroups(ctx, "riverside", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, models.ConflictDuplicate, groups[0].Type)
	assert.Equal(t, models.ResolveKeepFirst, groups[0].Suggested)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, groups[0].MemberIDs)

	for _, id := range []string{a.ID, b.ID} {
		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConflicted, got.Status)
		assert.True(t, got.IsDuplicate)
		assert.Equal(t, groups[0].ID, got.ConflictGroupID)
	}
}

func TestDetector_OrderIndependence(t *testing.T) {
	mk := func() (*models.DataPoint, *models.DataPoint) {
		return point("p", "f1", "ACME Concrete", "Concrete pour", 4500, "2024-03-15"),
			point("p", "f2", "ACME Concrete", "Concrete payment", 4500, "2024-03-16")
	}

	for name, flip := range map[string]bool{"a then b": false, "b then a": true} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())

			a, b := mk()
			if flip {
				a, b = b, a
			}
			insertAndScan(t, s, d, a)
			insertAndScan(t, s, d, b)

			groups, err := s.ListConflictGroups(context.Background(), "p", true)
			require.NoError(t, err)
			require.Len(t, groups, 1, "insertion order must not change the outcome")
			assert.Len(t, groups[0].MemberIDs, 2)
		})
	}
}

func TestDetector_ThirdDuplicateJoinsExistingGroup(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())

	insertAndScan(t, s, d, point("p", "f1", "ACME Concrete", "Concrete pour", 4500, "2024-03-15"))
	insertAndScan(t, s, d, point("p", "f2", "ACME Concrete", "Concrete pour", 4500, "2024-03-15"))
	insertAndScan(t, s, d, point("p", "f3", "ACME Concrete", "Concrete pour", 4500, "2024-03-16"))

	groups, err := s.ListConflictGroups(context.Background(), "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 1, "a third sighting extends the group instead of opening a second one")
	assert.Len(t, groups[0].MemberIDs, 3)
}

func TestDetector_BridgingDuplicatePullsInUngroupedMatch(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())
	ctx := context.Background()

	// a and b form a duplicate group; c arrives two days later and matches
	// nothing. The bridge is within a day of both b and c, so it joins the
	// existing group and must drag c in with it.
	a := point("p", "f1", "ACME Concrete", "Concrete pour", 4500, "2024-03-15")
	b := point("p", "f2", "ACME Concrete", "Concrete pour", 4500, "2024-03-16")
	c := point("p", "f3", "ACME Concrete", "Concrete pour", 4500, "2024-03-18")
	bridge := point("p", "f4", "ACME Concrete", "Concrete pour", 4500, "2024-03-17")
	insertAndScan(t, s, d, a)
	insertAndScan(t, s, d, b)
	insertAndScan(t, s, d, c)
	insertAndScan(t, s, d, bridge)

	groups, err := s.ListConflictGroups(ctx, "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID, bridge.ID}, groups[0].MemberIDs)

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflicted, got.Status, "matched point must not stay extracted")
	assert.True(t, got.IsDuplicate)
	assert.Equal(t, groups[0].ID, got.ConflictGroupID)
}

func TestDetector_BridgingDuplicateMergesTwoGroups(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())
	ctx := context.Background()

	// Two separate duplicate groups three days apart, then a point within a
	// day of a member of each. The groups fold into one.
	a1 := point("p", "f1", "ACME Concrete", "Concrete pour", 4500, "2024-03-01")
	a2 := point("p", "f2", "ACME Concrete", "Concrete pour", 4500, "2024-03-02")
	b1 := point("p", "f3", "ACME Concrete", "Concrete pour", 4500, "2024-03-04")
	b2 := point("p", "f4", "ACME Concrete", "Concrete pour", 4500, "2024-03-05")
	bridge := point("p", "f5", "ACME Concrete", "Concrete pour", 4500, "2024-03-03")
	insertAndScan(t, s, d, a1)
	insertAndScan(t, s, d, a2)
	insertAndScan(t, s, d, b1)
	insertAndScan(t, s, d, b2)

	groups, err := s.ListConflictGroups(ctx, "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	insertAndScan(t, s, d, bridge)

	groups, err = s.ListConflictGroups(ctx, "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 1, "bridged groups must fold into one")
	assert.ElementsMatch(t, []string{a1.ID, a2.ID, b1.ID, b2.ID, bridge.ID}, groups[0].MemberIDs)

	for _, id := range []string{a1.ID, a2.ID, b1.ID, b2.ID, bridge.ID} {
		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, groups[0].ID, got.ConflictGroupID)
	}
}

func TestDetector_MixedMatchesTakeSeverestType(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())
	ctx := context.Background()

	// The new point disagrees on date with x and duplicates y. The group is
	// classified by the severest pairing, not the first one found.
	x := point("p", "f1", "ACME Concrete", "Concrete pour", 10000, "2024-03-01")
	x.InvoiceNo = "INV-2024-044"
	y := point("p", "f2", "ACME Concrete", "Concrete pour", 10000, "2024-03-09")
	z := point("p", "f3", "ACME Concrete", "Concrete pour", 10000, "2024-03-10")
	z.InvoiceNo = "INV-2024-044"
	insertAndScan(t, s, d, x)
	insertAndScan(t, s, d, y)
	insertAndScan(t, s, d, z)

	groups, err := s.ListConflictGroups(ctx, "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, models.ConflictDuplicate, groups[0].Type)
	assert.Equal(t, models.ResolveKeepFirst, groups[0].Suggested)
	assert.ElementsMatch(t, []string{x.ID, y.ID, z.ID}, groups[0].MemberIDs)

	// Per-pair duplicate flags: only the genuinely duplicated pair carries one.
	gx, err := s.Get(ctx, x.ID)
	require.NoError(t, err)
	assert.False(t, gx.IsDuplicate)
	gy, err := s.Get(ctx, y.ID)
	require.NoError(t, err)
	assert.True(t, gy.IsDuplicate)
}

func TestDetector_SameFileIsNotADuplicate(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())

	// Two identical rows in one spreadsheet are legitimate repeat charges.
	insertAndScan(t, s, d, point("p", "f1", "Crane Co", "Weekly crane rental", 1800, "2024-03-15"))
	insertAndScan(t, s, d, point("p", "f1", "Crane Co", "Weekly crane rental", 1800, "2024-03-15"))

	groups, err := s.ListConflictGroups(context.Background(), "p", true)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetector_AmountMismatch(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())
	ctx := context.Background()

	insertAndScan(t, s, d, point("p", "f1", "Sparks Electric", "Electrical rough-in", 12500, "2024-03-10"))
	insertAndScan(t, s, d, point("p", "f2", "Sparks Electric", "Electrical rough-in", 13400, "2024-03-12"))

	groups, err := s.ListConflictGroups(ctx, "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, models.ConflictAmountMismatch, groups[0].Type)
	assert.Equal(t, models.ResolveManualReview, groups[0].Suggested)
}

func TestDetector_AmountsWithinToleranceAgree(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())

	// 1% apart with the default 2% tolerance: same fact, not a conflict.
	insertAndScan(t, s, d, point("p", "f1", "Sparks Electric", "Electrical rough-in", 10000, "2024-03-10"))
	insertAndScan(t, s, d, point("p", "f2", "Sparks Electric", "Electrical rough-in", 10100, "2024-03-12"))

	groups, err := s.ListConflictGroups(context.Background(), "p", true)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetector_DistantDatesAreUnrelated(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())

	insertAndScan(t, s, d, point("p", "f1", "ACME Concrete", "Concrete pour", 4500, "2024-03-15"))
	insertAndScan(t, s, d, point("p", "f2", "ACME Concrete", "Concrete pour", 4700, "2024-07-20"))

	groups, err := s.ListConflictGroups(context.Background(), "p", true)
	require.NoError(t, err)
	assert.Empty(t, groups, "months-apart transactions with the same vendor are separate events")
}

func TestDetector_DateConflictOnSharedInvoice(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())

	a := point("p", "f1", "ACME Concrete", "Concrete pour", 4500, "2024-03-15")
	a.InvoiceNo = "INV-2024-001"
	b := point("p", "f2", "ACME Concrete", "Concrete pour", 4500, "2024-05-02")
	b.InvoiceNo = "INV-2024-001"
	insertAndScan(t, s, d, a)
	insertAndScan(t, s, d, b)

	groups, err := s.ListConflictGroups(context.Background(), "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, models.ConflictDateConflict, groups[0].Type)
}

func TestDetector_SupersededPointsAreInvisible(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())
	ctx := context.Background()

	old := point("p", "f1", "ACME Concrete", "Concrete pour", 4500, "2024-07-15")
	repl := point("p", "f1", "ACME Concrete", "Concrete pour corrected", 4500, "2024-03-15")
	insertAndScan(t, s, d, old)
	insertAndScan(t, s, d, repl)
	require.NoError(t, s.Supersede(ctx, old.ID, repl.ID))

	// An exact duplicate of the superseded point's values matches nothing
	// live, so no group opens.
	insertAndScan(t, s, d, point("p", "f2", "ACME Concrete", "Concrete pour", 4500, "2024-07-15"))

	groups, err := s.ListConflictGroups(ctx, "p", true)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestResolver_KeepFirst(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())
	r := NewResolver(s, logging.NewMockLogger())
	ctx := context.Background()

	a := point("p", "f1", "ACME Concrete", "Concrete pour", 4500, "2024-03-15")
	a.CreatedAt = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	b := point("p", "f2", "ACME Concrete", "Concrete payment", 4500, "2024-03-16")
	b.CreatedAt = time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC)
	insertAndScan(t, s, d, a)
	insertAndScan(t, s, d, b)

	groups, err := s.ListConflictGroups(ctx, "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	require.NoError(t, r.Resolve(ctx, groups[0].ID, models.ResolveKeepFirst, "", "j.moreau"))

	winner, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, winner.Status)
	assert.False(t, winner.Superseded())

	loser, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, loser.SupersededBy)

	resolved, err := s.GetConflictGroup(ctx, groups[0].ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, a.ID, resolved.WinnerID)
}

func TestResolver_ManualReviewNeedsWinner(t *testing.T) {
	s := newTestStore(t)
	d := NewDetector(s, DefaultConfig(), logging.NewMockLogger())
	r := NewResolver(s, logging.NewMockLogger())
	ctx := context.Background()

	a := point("p", "f1", "Sparks Electric", "Electrical rough-in", 12500, "2024-03-10")
	b := point("p", "f2", "Sparks Electric", "Electrical rough-in", 13400, "2024-03-12")
	insertAndScan(t, s, d, a)
	insertAndScan(t, s, d, b)

	groups, err := s.ListConflictGroups(ctx, "p", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	assert.Error(t, r.Resolve(ctx, groups[0].ID, models.ResolveManualReview, "", "x"))
	require.NoError(t, r.Resolve(ctx, groups[0].ID, models.ResolveManualReview, b.ID, "j.moreau"))

	kept, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, kept.Status)
}
