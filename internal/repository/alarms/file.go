package alarms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/repository/atomicfile"
)

// FileRepository persists alarms as a JSON array on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON array.
	path string
	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Append adds the alarm at the end of the array.
func (r *FileRepository) Append(ctx context.Context, fired alarm.Alarm) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := fired.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}

	all = append(all, fired)

	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}

	if err = atomicfile.Write(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write alarms file: %w", err)
	}

	return nil
}

// Recent returns the last n alarms, every alarm when n <= 0.
func (r *FileRepository) Recent(ctx context.Context, n int) ([]alarm.Alarm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return nil, err
	}

	return tail(all, n), nil
}

// Close is a no-op, every append is already durable.
func (r *FileRepository) Close() error {
	return nil
}

// load reads the array. Callers hold mu.
func (r *FileRepository) load() ([]alarm.Alarm, error) {
	all := make([]alarm.Alarm, 0)

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return all, nil
		}

		return nil, fmt.Errorf("read alarms file: %w", err)
	}

	if len(bytes.TrimSpace(contents)) == 0 {
		return all, nil
	}

	if err = json.Unmarshal(contents, &all); err != nil {
		return nil, fmt.Errorf("decode alarms file: %w", err)
	}

	return all, nil
}
