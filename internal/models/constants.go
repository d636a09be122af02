// Package models defines the core data types of the findex pipeline:
// extractions, candidate transactions, data points, conflict groups,
// validation rules and aggregated statements.
package models

import "fmt"

// FileType identifies the kind of source file handed to the extractor registry.
type FileType string

const (
	FileTypeExcel FileType = "excel"
	FileTypePDF   FileType = "pdf"
	FileTypeCSV   FileType = "csv"
	FileTypeImage FileType = "image"
)

// ParseFileType converts a string tag into a FileType.
func ParseFileType(s string) (FileType, error) {
	switch FileType(s) {
	case FileTypeExcel, FileTypePDF, FileTypeCSV, FileTypeImage:
		return FileType(s), nil
	}
	return "", fmt.Errorf("unknown file type '%s'", s)
}

// ExtractionStatus reports the outcome of a single file extraction.
type ExtractionStatus string

const (
	ExtractionSuccess ExtractionStatus = "success"
	ExtractionPartial ExtractionStatus = "partial"
	ExtractionFailed  ExtractionStatus = "failed"
)

// DataPointStatus is the lifecycle state of a data point.
// Transitions: extracted -> (validated | conflicted) -> manually_corrected -> approved.
type DataPointStatus string

const (
	StatusExtracted         DataPointStatus = "extracted"
	StatusValidated         DataPointStatus = "validated"
	StatusConflicted        DataPointStatus = "conflicted"
	StatusManuallyCorrected DataPointStatus = "manually_corrected"
	StatusApproved          DataPointStatus = "approved"
)

// DataPointType classifies what kind of financial fact a data point records.
type DataPointType string

const (
	TypeTransaction DataPointType = "transaction"
	TypeBudgetItem  DataPointType = "budget_item"
	TypeContract    DataPointType = "contract"
	TypeChangeOrder DataPointType = "change_order"
	TypePayment     DataPointType = "payment"
	TypeCost        DataPointType = "cost"
	TypeRevenue     DataPointType = "revenue"
)

// ConflictType names the kind of disagreement detected between data points.
type ConflictType string

const (
	ConflictAmountMismatch ConflictType = "amount_mismatch"
	ConflictDuplicate      ConflictType = "duplicate"
	ConflictDateConflict   ConflictType = "date_conflict"
)

// ResolutionStrategy is the detector's suggestion for resolving a conflict group.
type ResolutionStrategy string

const (
	ResolveKeepFirst    ResolutionStrategy = "keep_first"
	ResolveKeepLast     ResolutionStrategy = "keep_last"
	ResolveMerge        ResolutionStrategy = "merge"
	ResolveManualReview ResolutionStrategy = "manual_review"
)

// MappingMethod records how a classification was produced.
type MappingMethod string

const (
	MethodAI      MappingMethod = "ai"
	MethodKeyword MappingMethod = "keyword"
	MethodManual  MappingMethod = "manual"
)

// JobStatus is the state of a batch extraction job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Severity grades a validation rule violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// DocumentType hints at what kind of document a file is, biasing classification.
type DocumentType string

const (
	DocInvoice       DocumentType = "invoice"
	DocReceipt       DocumentType = "receipt"
	DocBankStatement DocumentType = "bank_statement"
	DocBudget        DocumentType = "budget"
	DocContract      DocumentType = "contract"
	DocChangeOrder   DocumentType = "change_order"
	DocUnknown       DocumentType = ""
)
