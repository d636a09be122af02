package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/pipelineerror"
)

const schema = `
CREATE TABLE IF NOT EXISTS data_points (
	id                TEXT PRIMARY KEY,
	project_id        TEXT NOT NULL,
	source_file_id    TEXT NOT NULL,
	source_file_name  TEXT NOT NULL,
	source_file_type  TEXT NOT NULL,
	loc_sheet         TEXT NOT NULL DEFAULT '',
	loc_row           INTEGER NOT NULL DEFAULT 0,
	loc_page          INTEGER NOT NULL DEFAULT 0,
	loc_line          INTEGER NOT NULL DEFAULT 0,
	loc_cell          TEXT NOT NULL DEFAULT '',
	type              TEXT NOT NULL,
	status            TEXT NOT NULL,
	date              TEXT,
	description       TEXT NOT NULL,
	amount            TEXT NOT NULL,
	currency          TEXT NOT NULL DEFAULT '',
	vendor            TEXT NOT NULL DEFAULT '',
	invoice_no        TEXT NOT NULL DEFAULT '',
	po_number         TEXT NOT NULL DEFAULT '',
	cost_code         TEXT NOT NULL DEFAULT '',
	gl_account        TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	mapping_method    TEXT NOT NULL DEFAULT '',
	confidence        REAL NOT NULL DEFAULT 0,
	conflict_group_id TEXT NOT NULL DEFAULT '',
	is_duplicate      INTEGER NOT NULL DEFAULT 0,
	superseded_by     TEXT NOT NULL DEFAULT '',
	edited            INTEGER NOT NULL DEFAULT 0,
	edits             TEXT NOT NULL DEFAULT '[]',
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_data_points_project ON data_points(project_id);

CREATE TABLE IF NOT EXISTS conflict_groups (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	type        TEXT NOT NULL,
	suggested   TEXT NOT NULL,
	resolved    INTEGER NOT NULL DEFAULT 0,
	winner_id   TEXT NOT NULL DEFAULT '',
	member_ids  TEXT NOT NULL DEFAULT '[]',
	detected_at TEXT NOT NULL,
	resolved_at TEXT,
	resolved_by TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_conflict_groups_project ON conflict_groups(project_id);

CREATE TABLE IF NOT EXISTS validation_rules (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL,
	field      TEXT NOT NULL,
	min        REAL,
	max        REAL,
	pattern    TEXT NOT NULL DEFAULT '',
	severity   TEXT NOT NULL,
	message    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS raw_extractions (
	file_id      TEXT PRIMARY KEY,
	file_name    TEXT NOT NULL,
	file_type    TEXT NOT NULL,
	method       TEXT NOT NULL,
	status       TEXT NOT NULL,
	raw_text     TEXT NOT NULL,
	tx_count     INTEGER NOT NULL DEFAULT 0,
	errors       TEXT NOT NULL DEFAULT '[]',
	warnings     TEXT NOT NULL DEFAULT '[]',
	extracted_at TEXT NOT NULL
);
`

// DataPointStore is the transactional store for data points, conflict groups,
// validation rules and raw extraction records, backed by SQLite.
type DataPointStore struct {
	db     *sql.DB
	logger logging.Logger

	locksMu      sync.Mutex
	projectLocks map[string]*sync.Mutex
}

// NewDataPointStore opens (creating if necessary) the SQLite database at path.
func NewDataPointStore(path string, logger logging.Logger) (*DataPointStore, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &pipelineerror.StoreError{Op: "open", Err: err}
	}
	// SQLite allows a single writer; serialize at the pool level so
	// concurrent inserts for different projects queue instead of erroring.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &pipelineerror.StoreError{Op: "migrate", Err: err}
	}

	return &DataPointStore{
		db:           db,
		logger:       logger,
		projectLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database.
func (s *DataPointStore) Close() error {
	return s.db.Close()
}

// WithProjectLock runs fn inside the critical section for one project.
// Insert-then-scan sequences for the same project are serialized here so two
// concurrent insertions cannot race into two conflict groups for the same
// underlying duplicate. Other projects proceed unblocked.
func (s *DataPointStore) WithProjectLock(projectID string, fn func() error) error {
	s.locksMu.Lock()
	lock, ok := s.projectLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.projectLocks[projectID] = lock
	}
	s.locksMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// Insert persists a new data point. Amount and description must be present;
// ID and timestamps are filled in when empty.
func (s *DataPointStore) Insert(ctx context.Context, dp *models.DataPoint) error {
	if dp.Description == "" {
		return &pipelineerror.ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if dp.ProjectID == "" {
		return &pipelineerror.ValidationError{Field: "project_id", Reason: "must not be empty"}
	}

	if dp.ID == "" {
		dp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if dp.CreatedAt.IsZero() {
		dp.CreatedAt = now
	}
	dp.UpdatedAt = now
	if dp.Status == "" {
		dp.Status = models.StatusExtracted
	}
	if dp.Type == "" {
		dp.Type = models.TypeTransaction
	}

	edits, err := json.Marshal(dp.Edits)
	if err != nil {
		return &pipelineerror.StoreError{Op: "insert", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO data_points (
			id, project_id, source_file_id, source_file_name, source_file_type,
			loc_sheet, loc_row, loc_page, loc_line, loc_cell,
			type, status, date, description, amount, currency,
			vendor, invoice_no, po_number, cost_code, gl_account,
			category, mapping_method, confidence,
			conflict_group_id, is_duplicate, superseded_by,
			edited, edits, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		dp.ID, dp.ProjectID,
		dp.Lineage.SourceFileID, dp.Lineage.SourceFileName, string(dp.Lineage.SourceFileType),
		dp.Lineage.Location.Sheet, dp.Lineage.Location.Row, dp.Lineage.Location.Page,
		dp.Lineage.Location.Line, dp.Lineage.Location.Cell,
		string(dp.Type), string(dp.Status), nullableTime(dp.Date),
		dp.Description, dp.Amount.Amount.String(), dp.Amount.Currency,
		dp.Vendor, dp.InvoiceNo, dp.PONumber, dp.CostCode, dp.GLAccount,
		string(dp.Category), string(dp.MappingMethod), dp.Confidence,
		dp.ConflictGroupID, boolToInt(dp.IsDuplicate), dp.SupersededBy,
		boolToInt(dp.Edited), string(edits),
		dp.CreatedAt.Format(time.RFC3339Nano), dp.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return &pipelineerror.StoreError{Op: "insert", Err: err}
	}

	s.logger.Debug("Inserted data point",
		logging.Field{Key: logging.FieldDataPoint, Value: dp.ID},
		logging.Field{Key: logging.FieldProject, Value: dp.ProjectID})
	return nil
}

// Get returns one data point by id.
func (s *DataPointStore) Get(ctx context.Context, id string) (*models.DataPoint, error) {
	row := s.db.QueryRowContext(ctx, selectDataPoints+` WHERE id = ?`, id)
	dp, err := scanDataPoint(row)
	if err == sql.ErrNoRows {
		return nil, &pipelineerror.NotFoundError{Kind: "data point", ID: id}
	}
	if err != nil {
		return nil, &pipelineerror.StoreError{Op: "get", Err: err}
	}
	return dp, nil
}

// QueryFilter narrows QueryByProject results.
type QueryFilter struct {
	Status            models.DataPointStatus
	Type              models.DataPointType
	Category          models.CategoryPath
	SourceFileID      string
	IncludeSuperseded bool
}

// QueryByProject returns the project's data points in deterministic order
// (creation time, then id). Superseded points are excluded unless asked for.
func (s *DataPointStore) QueryByProject(ctx context.Context, projectID string, filter QueryFilter) ([]*models.DataPoint, error) {
	query := selectDataPoints + ` WHERE project_id = ?`
	args := []interface{}{projectID}

	if !filter.IncludeSuperseded {
		query += ` AND superseded_by = ''`
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	if filter.SourceFileID != "" {
		query += ` AND source_file_id = ?`
		args = append(args, filter.SourceFileID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &pipelineerror.StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	var points []*models.DataPoint
	for rows.Next() {
		dp, err := scanDataPoint(rows)
		if err != nil {
			return nil, &pipelineerror.StoreError{Op: "query", Err: err}
		}
		points = append(points, dp)
	}
	return points, rows.Err()
}

// correctableFields maps Correct() change keys to the snapshot accessor for
// each field. Only these fields may be manually corrected.
var correctableFields = map[string]func(*models.DataPoint) string{
	"description": func(d *models.DataPoint) string { return d.Description },
	"amount":      func(d *models.DataPoint) string { return d.Amount.Amount.String() },
	"currency":    func(d *models.DataPoint) string { return d.Amount.Currency },
	"date": func(d *models.DataPoint) string {
		if d.Date == nil {
			return ""
		}
		return d.Date.Format(time.RFC3339Nano)
	},
	"vendor":     func(d *models.DataPoint) string { return d.Vendor },
	"category":   func(d *models.DataPoint) string { return string(d.Category) },
	"type":       func(d *models.DataPoint) string { return string(d.Type) },
	"invoice_no": func(d *models.DataPoint) string { return d.InvoiceNo },
	"po_number":  func(d *models.DataPoint) string { return d.PONumber },
	"cost_code":  func(d *models.DataPoint) string { return d.CostCode },
	"gl_account": func(d *models.DataPoint) string { return d.GLAccount },
}

// Correct applies a manual correction. The prior value of every changed
// field is archived in an EditRecord before the overwrite, so no correction
// ever loses data. The point moves to manually_corrected status.
func (s *DataPointStore) Correct(ctx context.Context, id string, changes map[string]string, editor, reason string) (*models.DataPoint, error) {
	if len(changes) == 0 {
		return nil, &pipelineerror.ValidationError{Field: "changes", Reason: "must not be empty"}
	}

	dp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	record := models.EditRecord{
		Editor:         editor,
		Reason:         reason,
		EditedAt:       time.Now().UTC(),
		OriginalValues: make(map[string]string, len(changes)),
	}

	for field, newValue := range changes {
		snapshot, ok := correctableFields[field]
		if !ok {
			return nil, &pipelineerror.ValidationError{Field: field, Reason: "not a correctable field"}
		}
		record.OriginalValues[field] = snapshot(dp)

		switch field {
		case "description":
			if newValue == "" {
				return nil, &pipelineerror.ValidationError{Field: "description", Reason: "must not be empty"}
			}
			dp.Description = newValue
		case "amount":
			amt, err := decimal.NewFromString(newValue)
			if err != nil {
				return nil, &pipelineerror.ValidationError{Field: "amount", Reason: err.Error()}
			}
			dp.Amount.Amount = amt
		case "currency":
			dp.Amount.Currency = newValue
		case "date":
			if newValue == "" {
				dp.Date = nil
			} else {
				t, err := time.Parse(time.RFC3339Nano, newValue)
				if err != nil {
					t2, err2 := time.Parse("2006-01-02", newValue)
					if err2 != nil {
						return nil, &pipelineerror.ValidationError{Field: "date", Reason: err.Error()}
					}
					t = t2
				}
				dp.Date = &t
			}
		case "vendor":
			dp.Vendor = newValue
		case "category":
			dp.Category = models.CategoryPath(newValue)
			dp.MappingMethod = models.MethodManual
		case "type":
			dp.Type = models.DataPointType(newValue)
		case "invoice_no":
			dp.InvoiceNo = newValue
		case "po_number":
			dp.PONumber = newValue
		case "cost_code":
			dp.CostCode = newValue
		case "gl_account":
			dp.GLAccount = newValue
		}
	}

	dp.Edited = true
	dp.Edits = append(dp.Edits, record)
	dp.Status = models.StatusManuallyCorrected
	dp.UpdatedAt = time.Now().UTC()

	if err := s.update(ctx, dp); err != nil {
		return nil, err
	}

	s.logger.Info("Applied manual correction",
		logging.Field{Key: logging.FieldDataPoint, Value: dp.ID},
		logging.Field{Key: "editor", Value: editor},
		logging.Field{Key: logging.FieldCount, Value: len(changes)})
	return dp, nil
}

// Supersede logically replaces oldID with newID. The old point stays
// queryable for audit but is excluded from aggregation and conflict scans.
func (s *DataPointStore) Supersede(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return &pipelineerror.ValidationError{Field: "superseded_by", Reason: "a data point cannot supersede itself"}
	}
	if _, err := s.Get(ctx, newID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE data_points SET superseded_by = ?, updated_at = ? WHERE id = ?`,
		newID, time.Now().UTC().Format(time.RFC3339Nano), oldID)
	if err != nil {
		return &pipelineerror.StoreError{Op: "supersede", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &pipelineerror.NotFoundError{Kind: "data point", ID: oldID}
	}

	s.logger.Info("Superseded data point",
		logging.Field{Key: logging.FieldDataPoint, Value: oldID},
		logging.Field{Key: "superseded_by", Value: newID})
	return nil
}

// SetStatus transitions a data point's lifecycle status.
func (s *DataPointStore) SetStatus(ctx context.Context, id string, status models.DataPointStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE data_points SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return &pipelineerror.StoreError{Op: "set_status", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &pipelineerror.NotFoundError{Kind: "data point", ID: id}
	}
	return nil
}

// TagConflict stamps a data point with its conflict group membership and
// moves it to conflicted status.
func (s *DataPointStore) TagConflict(ctx context.Context, id, groupID string, duplicate bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE data_points SET conflict_group_id = ?, is_duplicate = ?, status = ?, updated_at = ? WHERE id = ?`,
		groupID, boolToInt(duplicate), string(models.StatusConflicted),
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return &pipelineerror.StoreError{Op: "tag_conflict", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &pipelineerror.NotFoundError{Kind: "data point", ID: id}
	}
	return nil
}

// update rewrites every mutable column of a data point.
func (s *DataPointStore) update(ctx context.Context, dp *models.DataPoint) error {
	edits, err := json.Marshal(dp.Edits)
	if err != nil {
		return &pipelineerror.StoreError{Op: "update", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE data_points SET
			type = ?, status = ?, date = ?, description = ?, amount = ?, currency = ?,
			vendor = ?, invoice_no = ?, po_number = ?, cost_code = ?, gl_account = ?,
			category = ?, mapping_method = ?, confidence = ?,
			conflict_group_id = ?, is_duplicate = ?, superseded_by = ?,
			edited = ?, edits = ?, updated_at = ?
		WHERE id = ?`,
		string(dp.Type), string(dp.Status), nullableTime(dp.Date),
		dp.Description, dp.Amount.Amount.String(), dp.Amount.Currency,
		dp.Vendor, dp.InvoiceNo, dp.PONumber, dp.CostCode, dp.GLAccount,
		string(dp.Category), string(dp.MappingMethod), dp.Confidence,
		dp.ConflictGroupID, boolToInt(dp.IsDuplicate), dp.SupersededBy,
		boolToInt(dp.Edited), string(edits), dp.UpdatedAt.Format(time.RFC3339Nano),
		dp.ID)
	if err != nil {
		return &pipelineerror.StoreError{Op: "update", Err: err}
	}
	return nil
}

const selectDataPoints = `
	SELECT id, project_id, source_file_id, source_file_name, source_file_type,
		loc_sheet, loc_row, loc_page, loc_line, loc_cell,
		type, status, date, description, amount, currency,
		vendor, invoice_no, po_number, cost_code, gl_account,
		category, mapping_method, confidence,
		conflict_group_id, is_duplicate, superseded_by,
		edited, edits, created_at, updated_at
	FROM data_points`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataPoint(row rowScanner) (*models.DataPoint, error) {
	var (
		dp         models.DataPoint
		fileType   string
		dpType     string
		status     string
		date       sql.NullString
		amount     string
		category   string
		method     string
		duplicate  int
		edited     int
		edits      string
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(
		&dp.ID, &dp.ProjectID,
		&dp.Lineage.SourceFileID, &dp.Lineage.SourceFileName, &fileType,
		&dp.Lineage.Location.Sheet, &dp.Lineage.Location.Row, &dp.Lineage.Location.Page,
		&dp.Lineage.Location.Line, &dp.Lineage.Location.Cell,
		&dpType, &status, &date, &dp.Description, &amount, &dp.Amount.Currency,
		&dp.Vendor, &dp.InvoiceNo, &dp.PONumber, &dp.CostCode, &dp.GLAccount,
		&category, &method, &dp.Confidence,
		&dp.ConflictGroupID, &duplicate, &dp.SupersededBy,
		&edited, &edits, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	dp.Lineage.SourceFileType = models.FileType(fileType)
	dp.Type = models.DataPointType(dpType)
	dp.Status = models.DataPointStatus(status)
	dp.Category = models.CategoryPath(category)
	dp.MappingMethod = models.MappingMethod(method)
	dp.IsDuplicate = duplicate != 0
	dp.Edited = edited != 0

	if date.Valid && date.String != "" {
		t, err := time.Parse(time.RFC3339Nano, date.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt date column for %s: %w", dp.ID, err)
		}
		dp.Date = &t
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount column for %s: %w", dp.ID, err)
	}
	dp.Amount.Amount = dec

	if err := json.Unmarshal([]byte(edits), &dp.Edits); err != nil {
		return nil, fmt.Errorf("corrupt edits column for %s: %w", dp.ID, err)
	}

	if dp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at column for %s: %w", dp.ID, err)
	}
	if dp.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("corrupt updated_at column for %s: %w", dp.ID, err)
	}

	return &dp, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
