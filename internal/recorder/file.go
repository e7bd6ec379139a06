package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"TaxSentinel/internal/model"
)

// FileSink writes each report as indented JSON into Dir.
type FileSink struct {
	Dir    string
	logger *zap.Logger
}

func NewFileSink(dir string, logger *zap.Logger) *FileSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{Dir: dir, logger: logger}
}

// ReportFileName is the file name a report generated at ts is written to.
func ReportFileName(prefix string, ts time.Time) string {
	return fmt.Sprintf("%s_%s.json", prefix, ts.UTC().Format("20060102_150405"))
}

func (f *FileSink) Emit(ctx context.Context, report *model.EcosystemReport) error {
	_, err := f.EmitJSON(ctx, ReportFileName("health_report", report.Timestamp), report)
	return err
}

// EmitJSON writes any report value under name and returns the written path.
func (f *FileSink) EmitJSON(ctx context.Context, name string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", writeFailure("create report dir %s: %v", f.Dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", writeFailure("encode %s: %v", name, err)
	}
	path := filepath.Join(f.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", writeFailure("write %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", writeFailure("rename %s: %v", path, err)
	}
	f.logger.Info("report written", zap.String("path", path))
	return path, nil
}

func (f *FileSink) Close() error { return nil }
