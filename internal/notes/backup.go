package notes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"spt3g-viewer/internal/domain"
)

const backupTimeLayout = "20060102T150405Z"

// Backup writes periodic snapshots of the notes map to a directory as
// notes-<UTC timestamp>.json.
type Backup struct {
	cron   *cron.Cron
	repo   domain.NotesRepository
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewBackup creates a Backup writing into dir.
func NewBackup(repo domain.NotesRepository, dir string, logger *slog.Logger) *Backup {
	return &Backup{
		cron:   cron.New(),
		repo:   repo,
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
}

// Schedule registers a snapshot job with a standard five-field cron spec.
func (b *Backup) Schedule(spec string) error {
	_, err := b.cron.AddFunc(spec, func() {
		path, err := b.Snapshot(context.Background())
		if err != nil {
			b.logger.Warn("notes backup failed", "error", err)
			return
		}
		b.logger.Info("notes backup written", "path", path)
	})
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	b.logger.Info("scheduled notes backup", "schedule", spec, "dir", b.dir)
	return nil
}

// Start starts the cron scheduler.
func (b *Backup) Start() {
	b.cron.Start()
}

// Stop stops the scheduler and waits for a running snapshot to finish.
func (b *Backup) Stop() {
	<-b.cron.Stop().Done()
}

// Snapshot writes the current notes immediately and returns the file path.
func (b *Backup) Snapshot(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	data, err := marshalNotes(b.repo.All())
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("notes-%s.json", b.now().UTC().Format(backupTimeLayout))
	path := filepath.Join(b.dir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}
