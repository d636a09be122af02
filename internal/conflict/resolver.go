package conflict

import (
	"context"
	"fmt"
	"sort"

	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

// Resolver applies a resolution strategy to a conflict group: one member
// wins, the rest are superseded by it, and the group is closed.
type Resolver struct {
	store  *store.DataPointStore
	logger logging.Logger
}

// NewResolver builds a resolver over the given store.
func NewResolver(st *store.DataPointStore, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Resolver{store: st, logger: logger}
}

// Resolve closes a conflict group. keep_first and keep_last pick the winner
// by extraction time; manual_review and merge require the caller to name the
// winner explicitly. Losers are superseded by the winner and the winner
// returns to validated status.
func (r *Resolver) Resolve(ctx context.Context, groupID string, strategy models.ResolutionStrategy, winnerID, resolvedBy string) error {
	group, err := r.store.GetConflictGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.Resolved {
		return fmt.Errorf("conflict group %s is already resolved", groupID)
	}

	members, err := r.loadMembers(ctx, group)
	if err != nil {
		return err
	}

	switch strategy {
	case models.ResolveKeepFirst:
		winnerID = members[0].ID
	case models.ResolveKeepLast:
		winnerID = members[len(members)-1].ID
	case models.ResolveManualReview, models.ResolveMerge:
		if winnerID == "" {
			return fmt.Errorf("strategy %s requires an explicit winner", strategy)
		}
	default:
		return fmt.Errorf("unknown resolution strategy %q", strategy)
	}

	return r.store.WithProjectLock(group.ProjectID, func() error {
		if err := r.store.ResolveConflictGroup(ctx, groupID, winnerID, resolvedBy); err != nil {
			return err
		}
		for _, m := range members {
			if m.ID == winnerID {
				continue
			}
			if err := r.store.Supersede(ctx, m.ID, winnerID); err != nil {
				return err
			}
		}
		if err := r.store.SetStatus(ctx, winnerID, models.StatusValidated); err != nil {
			return err
		}
		r.logger.Info("conflict group resolved",
			logging.Field{Key: logging.FieldGroup, Value: groupID},
			logging.Field{Key: logging.FieldDataPoint, Value: winnerID},
			logging.Field{Key: "strategy", Value: string(strategy)})
		return nil
	})
}

// loadMembers fetches the group's data points sorted by creation time, so
// keep_first and keep_last have a stable ordering to pick from.
func (r *Resolver) loadMembers(ctx context.Context, group *models.ConflictGroup) ([]*models.DataPoint, error) {
	members := make([]*models.DataPoint, 0, len(group.MemberIDs))
	for _, id := range group.MemberIDs {
		dp, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		members = append(members, dp)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].ID < members[j].ID
		}
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return members, nil
}
