// Package intake turns files dropped into a directory into intake transactions.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/allisson/edibox/internal/edi"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/usecase"
)

const (
	// Actor recorded on history entries created by the watcher.
	Actor = "intake-watcher"

	failedDir       = "failed"
	unknownPartner  = "unknown"
	defaultSettle   = 500 * time.Millisecond
	defaultMaxBytes = 10 << 20
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Creator is the subset of the lifecycle engine used by the watcher.
type Creator interface {
	Create(ctx context.Context, input usecase.CreateInput) (*transactionDomain.Transaction, error)
}

// Config holds intake watcher configuration.
type Config struct {
	Dir string
	// Settle is how long a file must stay unchanged before it is ingested.
	Settle   time.Duration
	MaxBytes int64
}

// Watcher ingests files from Config.Dir. Ingested files are removed; files that
// cannot be ingested are moved to the "failed" subdirectory.
type Watcher struct {
	config  Config
	creator Creator
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates a Watcher. The directory and its failed subdirectory are created when missing.
func NewWatcher(config Config, creator Creator, logger *slog.Logger) (*Watcher, error) {
	if config.Dir == "" {
		return nil, errors.New("intake directory is required")
	}
	if config.Settle <= 0 {
		config.Settle = defaultSettle
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(config.Dir, failedDir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create intake directory: %w", err)
	}

	return &Watcher{
		config:  config,
		creator: creator,
		logger:  logger,
		pending: make(map[string]time.Time),
	}, nil
}

// Run ingests the files already present and then watches for new ones until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := fsw.Add(w.config.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.config.Dir, err)
	}

	w.logger.Info("watching intake directory", slog.String("dir", w.config.Dir))

	if _, err := w.Scan(ctx); err != nil {
		w.logger.Error("failed to scan intake directory", slog.Any("error", err))
	}

	ticker := time.NewTicker(w.config.Settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping intake watcher")
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.touch(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("intake watcher error", slog.Any("error", err))
		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				w.ingest(ctx, path)
			}
		}
	}
}

// Scan ingests every regular file currently in the directory and returns how many
// transactions were created.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read intake directory: %w", err)
	}

	created := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || ignored(entry.Name()) {
			continue
		}
		if w.ingest(ctx, filepath.Join(w.config.Dir, entry.Name())) {
			created++
		}
	}
	return created, nil
}

func (w *Watcher) touch(path string) {
	if ignored(filepath.Base(path)) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now()
}

// settled returns and forgets the pending files whose last change is older than Settle.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.config.Settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

// ingest creates a transaction from path and reports whether it succeeded.
func (w *Watcher) ingest(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	logger := w.logger.With(slog.String("file", path))

	if info.Size() == 0 {
		logger.Warn("skipping empty intake file")
		w.quarantine(logger, path)
		return false
	}
	if info.Size() > w.config.MaxBytes {
		logger.Warn("intake file exceeds size limit", slog.Int64("size", info.Size()))
		w.quarantine(logger, path)
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read intake file", slog.Any("error", err))
		return false
	}

	t, err := w.creator.Create(transactionDomain.WithActor(ctx, Actor), BuildInput(filepath.Base(path), data))
	if err != nil {
		logger.Error("failed to create intake transaction", slog.Any("error", err))
		w.quarantine(logger, path)
		return false
	}

	if err := os.Remove(path); err != nil {
		logger.Error("failed to remove ingested file", slog.Any("error", err))
	}
	logger.Info("intake file ingested",
		slog.String("transaction_id", t.ID.String()),
		slog.String("document_type", t.DocumentType),
	)
	return true
}

func (w *Watcher) quarantine(logger *slog.Logger, path string) {
	target := filepath.Join(w.config.Dir, failedDir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		logger.Error("failed to move intake file to failed", slog.Any("error", err))
	}
}

// BuildInput derives the intake CreateInput for a dropped file. EDI content is parsed
// for partner, document type and number; anything else is stored with its detected
// format as document type.
func BuildInput(filename string, data []byte) usecase.CreateInput {
	input := usecase.CreateInput{
		Stage:       transactionDomain.StageIntake,
		Filename:    filename,
		PartnerName: unknownPartner,
		Content:     data,
	}

	format := edi.Detect(data)
	input.DocumentType = string(format)
	if !format.IsEDI() {
		return input
	}

	md, err := edi.Parse(data)
	if err != nil {
		return input
	}
	input.Metadata = md
	if md.PartnerName != "" {
		input.PartnerName = md.PartnerName
	}
	if md.DocumentTypeCode != "" {
		input.DocumentType = md.DocumentTypeCode
	}
	input.DocumentNumber = md.DocumentNumber
	return input
}

func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || name == failedDir
}
