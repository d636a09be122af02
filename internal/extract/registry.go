package extract

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"findex/internal/fileutils"
	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/pipelineerror"
)

// Registry maps a file-type classification to a concrete extractor.
// It is stateless dispatch: the registry holds no file state beyond the
// extractor table itself.
type Registry struct {
	extractors map[models.FileType]Extractor
	logger     logging.Logger
}

// NewRegistry creates an empty extractor registry.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Registry{
		extractors: make(map[models.FileType]Extractor),
		logger:     logger,
	}
}

// Register associates one extractor with a file type, replacing any previous one.
func (r *Registry) Register(fileType models.FileType, e Extractor) {
	r.extractors[fileType] = e
}

// DetectFileType infers the file type from a path's extension.
func DetectFileType(path string) (models.FileType, bool) {
	switch fileutils.Extension(path) {
	case "xlsx", "xls", "xlsm":
		return models.FileTypeExcel, true
	case "pdf":
		return models.FileTypePDF, true
	case "csv":
		return models.FileTypeCSV, true
	case "png", "jpg", "jpeg", "tif", "tiff":
		return models.FileTypeImage, true
	}
	return "", false
}

// Dispatch selects the extractor registered for the file's type and invokes
// it. When tag is empty the type is inferred from the extension. A missing
// registration fails with UnsupportedFileTypeError; nothing else about the
// file is touched here.
func (r *Registry) Dispatch(ctx context.Context, path string, tag models.FileType) (models.RawExtraction, error) {
	fileType := tag
	if fileType == "" {
		detected, ok := DetectFileType(path)
		if !ok {
			return models.RawExtraction{}, &pipelineerror.UnsupportedFileTypeError{FilePath: path}
		}
		fileType = detected
	}

	e, ok := r.extractors[fileType]
	if !ok {
		return models.RawExtraction{}, &pipelineerror.UnsupportedFileTypeError{
			FilePath: path,
			FileType: string(fileType),
		}
	}

	start := time.Now()
	extraction, err := e.Extract(ctx, path)
	if err != nil {
		return models.RawExtraction{}, err
	}

	if extraction.FileID == "" {
		extraction.FileID = uuid.NewString()
	}
	if extraction.FileName == "" {
		extraction.FileName = filepath.Base(path)
	}
	if extraction.ExtractedAt.IsZero() {
		extraction.ExtractedAt = time.Now().UTC()
	}

	r.logger.Info("Extraction finished",
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldFileType, Value: string(fileType)},
		logging.Field{Key: logging.FieldStatus, Value: string(extraction.Status)},
		logging.Field{Key: logging.FieldCount, Value: len(extraction.Transactions)},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).Milliseconds()})

	return extraction, nil
}
