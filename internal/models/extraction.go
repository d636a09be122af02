package models

import "time"

// SourceLocation pins a candidate transaction to a position inside its
// source document (sheet+row for spreadsheets, page+line for PDFs).
type SourceLocation struct {
	Sheet string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Row   int    `json:"row,omitempty" yaml:"row,omitempty"`
	Page  int    `json:"page,omitempty" yaml:"page,omitempty"`
	Line  int    `json:"line,omitempty" yaml:"line,omitempty"`
	Cell  string `json:"cell,omitempty" yaml:"cell,omitempty"`
}

// CandidateTransaction is an unclassified fact proposed by an extractor.
// It is transient: the classifier consumes it and produces a DataPoint,
// candidates are never persisted on their own.
type CandidateTransaction struct {
	Description string         `json:"description"`
	Amount      Money          `json:"amount"`
	Date        *time.Time     `json:"date,omitempty"`
	Vendor      string         `json:"vendor,omitempty"`
	Reference   string         `json:"reference,omitempty"`
	Location    SourceLocation `json:"location"`
	Confidence  float64        `json:"confidence"`
}

// RawExtraction is the immutable record of one file extraction run.
// Downstream data points reference it by FileID, they never duplicate it.
type RawExtraction struct {
	FileID       string                 `json:"file_id"`
	FileName     string                 `json:"file_name"`
	FileType     FileType               `json:"file_type"`
	Method       string                 `json:"method"`
	RawText      string                 `json:"raw_text"`
	Transactions []CandidateTransaction `json:"transactions"`
	Status       ExtractionStatus       `json:"status"`
	Errors       []string               `json:"errors,omitempty"`
	Warnings     []string               `json:"warnings,omitempty"`
	ExtractedAt  time.Time              `json:"extracted_at"`
}

// Classification is the output of the classifier for one candidate transaction.
type Classification struct {
	CategoryPath CategoryPath  `json:"category_path"`
	Confidence   float64       `json:"confidence"`
	Method       MappingMethod `json:"method"`
}
