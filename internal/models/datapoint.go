package models

import "time"

// Lineage links a data point back to the exact place it was extracted from.
type Lineage struct {
	SourceFileID   string         `json:"source_file_id"`
	SourceFileName string         `json:"source_file_name"`
	SourceFileType FileType       `json:"source_file_type"`
	Location       SourceLocation `json:"location"`
}

// EditRecord captures a single manual correction: who changed what and why,
// with a snapshot of the values as they were before the change.
type EditRecord struct {
	Editor         string            `json:"editor"`
	Reason         string            `json:"reason"`
	EditedAt       time.Time         `json:"edited_at"`
	OriginalValues map[string]string `json:"original_values"`
}

// DataPoint is the durable, normalized financial fact and the single source
// of truth for everything downstream. Amount and Description are always
// present. Data points are never physically deleted: replacement happens by
// superseding, which keeps the original queryable for audit.
type DataPoint struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	Lineage Lineage `json:"lineage"`

	Type   DataPointType   `json:"type"`
	Status DataPointStatus `json:"status"`

	Date        *time.Time `json:"date,omitempty"`
	Description string     `json:"description"`
	Amount      Money      `json:"amount"`
	Vendor      string     `json:"vendor,omitempty"`
	InvoiceNo   string     `json:"invoice_no,omitempty"`
	PONumber    string     `json:"po_number,omitempty"`
	CostCode    string     `json:"cost_code,omitempty"`
	GLAccount   string     `json:"gl_account,omitempty"`

	Category      CategoryPath  `json:"category"`
	MappingMethod MappingMethod `json:"mapping_method"`
	Confidence    float64       `json:"confidence"`

	ConflictGroupID string `json:"conflict_group_id,omitempty"`
	IsDuplicate     bool   `json:"is_duplicate"`
	SupersededBy    string `json:"superseded_by,omitempty"`

	Edited bool         `json:"edited"`
	Edits  []EditRecord `json:"edits,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Superseded reports whether this point has been logically replaced.
// Superseded points never count toward aggregation or conflict scans.
func (d *DataPoint) Superseded() bool {
	return d.SupersededBy != ""
}

// Countable reports whether the point may contribute to an aggregated
// statement: not superseded and not sitting in an unresolved conflict.
func (d *DataPoint) Countable() bool {
	return !d.Superseded() && d.Status != StatusConflicted
}

// ConflictGroup clusters two or more data points believed to represent the
// same underlying fact. Membership only grows; detection time is immutable.
type ConflictGroup struct {
	ID           string             `json:"id"`
	ProjectID    string             `json:"project_id"`
	MemberIDs    []string           `json:"member_ids"`
	Type         ConflictType       `json:"type"`
	Suggested    ResolutionStrategy `json:"suggested_resolution"`
	Resolved     bool               `json:"resolved"`
	WinnerID     string             `json:"winner_id,omitempty"`
	DetectedAt   time.Time          `json:"detected_at"`
	ResolvedAt   *time.Time         `json:"resolved_at,omitempty"`
	ResolvedBy   string             `json:"resolved_by,omitempty"`
}

// ValidationRule is a declarative business constraint evaluated against data
// points. Rules only flag; they never mutate the points they inspect.
type ValidationRule struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id,omitempty"` // empty means all projects
	Type      DataPointType `json:"type,omitempty"`       // empty means all types
	Kind      string        `json:"kind"`                 // range | format | cross_reference
	Field     string        `json:"field"`
	Min       *float64      `json:"min,omitempty"`
	Max       *float64      `json:"max,omitempty"`
	Pattern   string        `json:"pattern,omitempty"`
	Severity  Severity      `json:"severity"`
	Message   string        `json:"message"`
}

// Violation is a single rule failure against a single data point.
type Violation struct {
	RuleID      string   `json:"rule_id"`
	DataPointID string   `json:"data_point_id"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
}
