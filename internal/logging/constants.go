package logging

// Standardized field names for structured logging. Keeping these in one
// place makes log output consistent and filterable.
const (
	FieldFile      = "file_path"
	FieldFileID    = "file_id"
	FieldFileType  = "file_type"
	FieldProject   = "project_id"
	FieldDataPoint = "data_point_id"
	FieldGroup     = "conflict_group_id"
	FieldCategory  = "category"
	FieldMethod    = "method"
	FieldStatus    = "status"
	FieldCount     = "count"
	FieldJob       = "job_id"
	FieldDuration  = "duration_ms"
)
