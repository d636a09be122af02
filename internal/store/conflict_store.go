package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/pipelineerror"
)

// InsertConflictGroup persists a newly detected conflict group.
func (s *DataPointStore) InsertConflictGroup(ctx context.Context, g *models.ConflictGroup) error {
	if len(g.MemberIDs) < 2 {
		return &pipelineerror.ValidationError{Field: "member_ids", Reason: "a conflict group needs at least two members"}
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.DetectedAt.IsZero() {
		g.DetectedAt = time.Now().UTC()
	}

	members, err := json.Marshal(g.MemberIDs)
	if err != nil {
		return &pipelineerror.StoreError{Op: "insert_group", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conflict_groups (id, project_id, type, suggested, resolved, winner_id, member_ids, detected_at, resolved_at, resolved_by)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.ProjectID, string(g.Type), string(g.Suggested),
		boolToInt(g.Resolved), g.WinnerID, string(members),
		g.DetectedAt.Format(time.RFC3339Nano), nullableTime(g.ResolvedAt), g.ResolvedBy)
	if err != nil {
		return &pipelineerror.StoreError{Op: "insert_group", Err: err}
	}

	s.logger.Info("Recorded conflict group",
		logging.Field{Key: logging.FieldGroup, Value: g.ID},
		logging.Field{Key: logging.FieldProject, Value: g.ProjectID},
		logging.Field{Key: "conflict_type", Value: string(g.Type)},
		logging.Field{Key: logging.FieldCount, Value: len(g.MemberIDs)})
	return nil
}

// GetConflictGroup returns one conflict group by id.
func (s *DataPointStore) GetConflictGroup(ctx context.Context, id string) (*models.ConflictGroup, error) {
	row := s.db.QueryRowContext(ctx, selectConflictGroups+` WHERE id = ?`, id)
	g, err := scanConflictGroup(row)
	if err == sql.ErrNoRows {
		return nil, &pipelineerror.NotFoundError{Kind: "conflict group", ID: id}
	}
	if err != nil {
		return nil, &pipelineerror.StoreError{Op: "get_group", Err: err}
	}
	return g, nil
}

// ListConflictGroups returns a project's conflict groups in detection order.
func (s *DataPointStore) ListConflictGroups(ctx context.Context, projectID string, unresolvedOnly bool) ([]*models.ConflictGroup, error) {
	query := selectConflictGroups + ` WHERE project_id = ?`
	if unresolvedOnly {
		query += ` AND resolved = 0`
	}
	query += ` ORDER BY detected_at, id`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, &pipelineerror.StoreError{Op: "list_groups", Err: err}
	}
	defer rows.Close()

	var groups []*models.ConflictGroup
	for rows.Next() {
		g, err := scanConflictGroup(rows)
		if err != nil {
			return nil, &pipelineerror.StoreError{Op: "list_groups", Err: err}
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ExtendConflictGroup adds a member to an existing group. Detection time is
// immutable; only the membership list grows.
func (s *DataPointStore) ExtendConflictGroup(ctx context.Context, groupID, dataPointID string) error {
	g, err := s.GetConflictGroup(ctx, groupID)
	if err != nil {
		return err
	}
	for _, id := range g.MemberIDs {
		if id == dataPointID {
			return nil // already a member
		}
	}
	g.MemberIDs = append(g.MemberIDs, dataPointID)

	members, err := json.Marshal(g.MemberIDs)
	if err != nil {
		return &pipelineerror.StoreError{Op: "extend_group", Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE conflict_groups SET member_ids = ? WHERE id = ?`, string(members), groupID)
	if err != nil {
		return &pipelineerror.StoreError{Op: "extend_group", Err: err}
	}
	return nil
}

// MergeConflictGroups folds the source group's members into the target group
// and removes the source, retagging the moved data points with the target's
// id. Used when a new data point bridges two previously separate groups.
func (s *DataPointStore) MergeConflictGroups(ctx context.Context, targetID, sourceID string) error {
	if targetID == sourceID {
		return nil
	}
	target, err := s.GetConflictGroup(ctx, targetID)
	if err != nil {
		return err
	}
	source, err := s.GetConflictGroup(ctx, sourceID)
	if err != nil {
		return err
	}

	have := make(map[string]bool, len(target.MemberIDs))
	for _, id := range target.MemberIDs {
		have[id] = true
	}
	for _, id := range source.MemberIDs {
		if !have[id] {
			target.MemberIDs = append(target.MemberIDs, id)
		}
	}

	members, err := json.Marshal(target.MemberIDs)
	if err != nil {
		return &pipelineerror.StoreError{Op: "merge_groups", Err: err}
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conflict_groups SET member_ids = ? WHERE id = ?`, string(members), targetID); err != nil {
		return &pipelineerror.StoreError{Op: "merge_groups", Err: err}
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE data_points SET conflict_group_id = ?, updated_at = ? WHERE conflict_group_id = ?`,
		targetID, time.Now().UTC().Format(time.RFC3339Nano), sourceID); err != nil {
		return &pipelineerror.StoreError{Op: "merge_groups", Err: err}
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM conflict_groups WHERE id = ?`, sourceID); err != nil {
		return &pipelineerror.StoreError{Op: "merge_groups", Err: err}
	}

	s.logger.Info("Merged conflict groups",
		logging.Field{Key: logging.FieldGroup, Value: targetID},
		logging.Field{Key: "merged_group", Value: sourceID},
		logging.Field{Key: logging.FieldCount, Value: len(target.MemberIDs)})
	return nil
}

// ResolveConflictGroup marks a group resolved with the winning data point.
func (s *DataPointStore) ResolveConflictGroup(ctx context.Context, groupID, winnerID, resolvedBy string) error {
	g, err := s.GetConflictGroup(ctx, groupID)
	if err != nil {
		return err
	}

	isMember := false
	for _, id := range g.MemberIDs {
		if id == winnerID {
			isMember = true
			break
		}
	}
	if !isMember {
		return &pipelineerror.ValidationError{Field: "winner_id", Reason: "winner must be a member of the group"}
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE conflict_groups SET resolved = 1, winner_id = ?, resolved_at = ?, resolved_by = ? WHERE id = ?`,
		winnerID, now.Format(time.RFC3339Nano), resolvedBy, groupID)
	if err != nil {
		return &pipelineerror.StoreError{Op: "resolve_group", Err: err}
	}

	s.logger.Info("Resolved conflict group",
		logging.Field{Key: logging.FieldGroup, Value: groupID},
		logging.Field{Key: "winner_id", Value: winnerID})
	return nil
}

const selectConflictGroups = `
	SELECT id, project_id, type, suggested, resolved, winner_id, member_ids, detected_at, resolved_at, resolved_by
	FROM conflict_groups`

func scanConflictGroup(row rowScanner) (*models.ConflictGroup, error) {
	var (
		g          models.ConflictGroup
		cType      string
		suggested  string
		resolved   int
		members    string
		detectedAt string
		resolvedAt sql.NullString
	)

	err := row.Scan(&g.ID, &g.ProjectID, &cType, &suggested, &resolved,
		&g.WinnerID, &members, &detectedAt, &resolvedAt, &g.ResolvedBy)
	if err != nil {
		return nil, err
	}

	g.Type = models.ConflictType(cType)
	g.Suggested = models.ResolutionStrategy(suggested)
	g.Resolved = resolved != 0

	if err := json.Unmarshal([]byte(members), &g.MemberIDs); err != nil {
		return nil, err
	}
	if g.DetectedAt, err = time.Parse(time.RFC3339Nano, detectedAt); err != nil {
		return nil, err
	}
	if resolvedAt.Valid && resolvedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, resolvedAt.String)
		if err != nil {
			return nil, err
		}
		g.ResolvedAt = &t
	}

	return &g, nil
}
