package pdfextract

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"findex/internal/logging"
)

// Runner abstracts external command execution so the extractor can be
// tested without pdftotext/tesseract installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger logging.Logger
}

// NewExecRunner returns the production Runner backed by os/exec.
func NewExecRunner(logger logging.Logger) Runner {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &execRunner{logger: logger}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		r.logger.WithError(err).Error("External command failed",
			logging.Field{Key: "cmd", Value: name},
			logging.Field{Key: "args", Value: strings.Join(args, " ")},
			logging.Field{Key: logging.FieldDuration, Value: dur.Milliseconds()},
			logging.Field{Key: "stderr", Value: truncate(errb.String(), 8<<10)})
	} else {
		r.logger.Debug("External command ok",
			logging.Field{Key: "cmd", Value: name},
			logging.Field{Key: logging.FieldDuration, Value: dur.Milliseconds()},
			logging.Field{Key: "stdout_bytes", Value: out.Len()})
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// MockRunner is a Runner for tests: it maps command names to canned output.
type MockRunner struct {
	Outputs map[string]string
	Errs    map[string]error
	Calls   []string
}

// Run returns the canned stdout/error registered for the command name.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.Calls = append(m.Calls, name)
	if err, ok := m.Errs[name]; ok && err != nil {
		return nil, []byte(err.Error()), err
	}
	return []byte(m.Outputs[name]), nil, nil
}
