package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"findex/internal/models"
	"findex/internal/pipelineerror"
)

// SaveValidationRule persists (or replaces) a validation rule.
func (s *DataPointStore) SaveValidationRule(ctx context.Context, r *models.ValidationRule) error {
	if r.Kind == "" || r.Field == "" {
		return &pipelineerror.ValidationError{Field: "rule", Reason: "kind and field are required"}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Severity == "" {
		r.Severity = models.SeverityWarning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO validation_rules (id, project_id, type, kind, field, min, max, pattern, severity, message)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.ProjectID, string(r.Type), r.Kind, r.Field,
		nullableFloat(r.Min), nullableFloat(r.Max), r.Pattern,
		string(r.Severity), r.Message)
	if err != nil {
		return &pipelineerror.StoreError{Op: "save_rule", Err: err}
	}
	return nil
}

// ListValidationRules returns the rules that apply to a project and type:
// rules scoped to that project or unscoped, that type or untyped.
func (s *DataPointStore) ListValidationRules(ctx context.Context, projectID string, dpType models.DataPointType) ([]*models.ValidationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, type, kind, field, min, max, pattern, severity, message
		FROM validation_rules
		WHERE (project_id = '' OR project_id = ?) AND (type = '' OR type = ?)
		ORDER BY id`,
		projectID, string(dpType))
	if err != nil {
		return nil, &pipelineerror.StoreError{Op: "list_rules", Err: err}
	}
	defer rows.Close()

	var rules []*models.ValidationRule
	for rows.Next() {
		var (
			r        models.ValidationRule
			rType    string
			severity string
			min, max sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &rType, &r.Kind, &r.Field,
			&min, &max, &r.Pattern, &severity, &r.Message); err != nil {
			return nil, &pipelineerror.StoreError{Op: "list_rules", Err: err}
		}
		r.Type = models.DataPointType(rType)
		r.Severity = models.Severity(severity)
		if min.Valid {
			v := min.Float64
			r.Min = &v
		}
		if max.Valid {
			v := max.Float64
			r.Max = &v
		}
		rules = append(rules, &r)
	}
	return rules, rows.Err()
}

// SaveExtraction records a raw extraction. Extractions are immutable once
// written; the raw text is retained for audit and reprocessing.
func (s *DataPointStore) SaveExtraction(ctx context.Context, ex *models.RawExtraction) error {
	errs, err := json.Marshal(ex.Errors)
	if err != nil {
		return &pipelineerror.StoreError{Op: "save_extraction", Err: err}
	}
	warns, err := json.Marshal(ex.Warnings)
	if err != nil {
		return &pipelineerror.StoreError{Op: "save_extraction", Err: err}
	}
	if ex.ExtractedAt.IsZero() {
		ex.ExtractedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO raw_extractions (file_id, file_name, file_type, method, status, raw_text, tx_count, errors, warnings, extracted_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		ex.FileID, ex.FileName, string(ex.FileType), ex.Method, string(ex.Status),
		ex.RawText, len(ex.Transactions), string(errs), string(warns),
		ex.ExtractedAt.Format(time.RFC3339Nano))
	if err != nil {
		return &pipelineerror.StoreError{Op: "save_extraction", Err: err}
	}
	return nil
}

// GetExtraction returns the stored record of one file extraction. The
// candidate transactions are transient and are not reloaded.
func (s *DataPointStore) GetExtraction(ctx context.Context, fileID string) (*models.RawExtraction, error) {
	var (
		ex          models.RawExtraction
		fileType    string
		status      string
		txCount     int
		errs, warns string
		extractedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT file_id, file_name, file_type, method, status, raw_text, tx_count, errors, warnings, extracted_at
		FROM raw_extractions WHERE file_id = ?`, fileID).
		Scan(&ex.FileID, &ex.FileName, &fileType, &ex.Method, &status,
			&ex.RawText, &txCount, &errs, &warns, &extractedAt)
	if err == sql.ErrNoRows {
		return nil, &pipelineerror.NotFoundError{Kind: "extraction", ID: fileID}
	}
	if err != nil {
		return nil, &pipelineerror.StoreError{Op: "get_extraction", Err: err}
	}

	ex.FileType = models.FileType(fileType)
	ex.Status = models.ExtractionStatus(status)
	if err := json.Unmarshal([]byte(errs), &ex.Errors); err != nil {
		return nil, &pipelineerror.StoreError{Op: "get_extraction", Err: err}
	}
	if err := json.Unmarshal([]byte(warns), &ex.Warnings); err != nil {
		return nil, &pipelineerror.StoreError{Op: "get_extraction", Err: err}
	}
	if ex.ExtractedAt, err = time.Parse(time.RFC3339Nano, extractedAt); err != nil {
		return nil, &pipelineerror.StoreError{Op: "get_extraction", Err: err}
	}
	return &ex, nil
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
