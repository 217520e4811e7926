package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/repository/atomicfile"
)

const (
	// DefaultRetention is how long a vessel stays in the store after it was last seen.
	DefaultRetention = 5 * time.Hour
	// MaxStoreSize is the largest serialized store accepted, in bytes.
	MaxStoreSize = 1_024_000
)

// ErrCapacityExceeded is returned when an upsert would grow the store past its cap.
var ErrCapacityExceeded = errors.New("snapshot store capacity exceeded")

// Repository defines the operations on the vessel snapshot store.
type Repository interface {
	Upsert(ctx context.Context, reports ...vessel.Report) error
	GetAll(ctx context.Context) (map[int64]vessel.Report, error)
	Raw(ctx context.Context) ([]byte, error)
}

// Option customizes a FileRepository.
type Option func(*FileRepository)

// WithClock sets the time source used for retention pruning.
func WithClock(clock func() time.Time) Option {
	return func(r *FileRepository) {
		r.clock = clock
	}
}

// WithRetention overrides DefaultRetention.
func WithRetention(retention time.Duration) Option {
	return func(r *FileRepository) {
		r.retention = retention
	}
}

// WithMaxSize overrides MaxStoreSize.
func WithMaxSize(maxSize int) Option {
	return func(r *FileRepository) {
		r.maxSize = maxSize
	}
}

// FileRepository persists vessel snapshots to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON store.
	path string
	// clock returns the current time.
	clock func() time.Time
	// retention is the maximum age of a kept entry.
	retention time.Duration
	// maxSize caps the serialized store.
	maxSize int
	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string, opts ...Option) *FileRepository {
	r := &FileRepository{
		path:      filepath.Clean(path),
		clock:     time.Now,
		retention: DefaultRetention,
		maxSize:   MaxStoreSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Upsert prunes stale entries and stores the given reports in one write.
// Either every report is stored or none is.
func (r *FileRepository) Upsert(ctx context.Context, reports ...vessel.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for i := range reports {
		if err := reports[i].Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}

	now := r.clock()
	for key, entry := range entries {
		if now.Sub(entry.SeenAt()) > r.retention {
			delete(entries, key)
		}
	}

	for _, report := range reports {
		entries[strconv.FormatInt(report.MMSI, 10)] = report
	}

	// Map keys are written sorted.
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if len(data) > r.maxSize {
		return fmt.Errorf("%w: %d bytes over %d", ErrCapacityExceeded, len(data), r.maxSize)
	}

	if err = atomicfile.Write(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}

	return nil
}

// GetAll returns every stored report keyed by MMSI. A missing file is an empty store.
func (r *FileRepository) GetAll(ctx context.Context) (map[int64]vessel.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	entries, err := r.load()
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	result := make(map[int64]vessel.Report, len(entries))
	for key, entry := range entries {
		mmsi, parseErr := strconv.ParseInt(key, 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("decode snapshot key %q: %w", key, parseErr)
		}

		result[mmsi] = entry
	}

	return result, nil
}

// Raw returns the persisted document, "{}" when nothing was stored yet.
func (r *FileRepository) Raw(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []byte("{}"), nil
		}

		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	return contents, nil
}

// load reads the store. Callers hold mu.
func (r *FileRepository) load() (map[string]vessel.Report, error) {
	entries := make(map[string]vessel.Report)

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entries, nil
		}

		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	if len(bytes.TrimSpace(contents)) == 0 {
		return entries, nil
	}

	if err = json.Unmarshal(contents, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}

	return entries, nil
}
