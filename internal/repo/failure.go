package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"numium/internal/model"
)

// failureEncoder writes bare {timestamp, stage, reason, ...} objects: no level, message or caller.
var failureEncoder = zapcore.EncoderConfig{
	TimeKey:    "timestamp",
	EncodeTime: zapcore.RFC3339NanoTimeEncoder,
	LineEnding: zapcore.DefaultLineEnding,
}

// FailureFile appends one JSON line per failure record.
type FailureFile struct {
	mu   sync.Mutex
	path string
}

func NewFailureFile(path string) *FailureFile {
	return &FailureFile{path: path}
}

func (f *FailureFile) Record(_ context.Context, rec model.FailureRecord) error {
	fields := []zap.Field{
		zap.String("stage", string(rec.Stage)),
		zap.String("reason", string(rec.Reason)),
	}
	if rec.TransferID != "" {
		fields = append(fields, zap.String("transfer_id", rec.TransferID))
	}
	if rec.Detail != "" {
		fields = append(fields, zap.String("detail", rec.Detail))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create failure log dir: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open failure log %s: %w", f.path, err)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(failureEncoder), zapcore.AddSync(file), zapcore.InfoLevel)
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: rec.Timestamp}
	if err := core.Write(entry, fields); err != nil {
		file.Close()
		return fmt.Errorf("append failure log %s: %w", f.path, err)
	}
	return file.Close()
}
