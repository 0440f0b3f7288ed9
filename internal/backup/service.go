// Package backup takes verified snapshots of the graph file with a simple
// keep-N retention policy. A snapshot is a plain file copy; verification
// reloads the copy through the graph store so a corrupt snapshot is caught
// at backup time, not at restore time.
package backup

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/storage/jsonl"
)

// snapshotSuffix marks snapshot files in the backup directory.
const snapshotSuffix = ".jsonl"

// Options configures a Service.
type Options struct {
	GraphPath string        // Graph file to snapshot (required)
	Dir       string        // Snapshot directory (required)
	Interval  time.Duration // Scheduler interval (default 1h)
	Keep      int           // Snapshots to retain (default 10)
	Verify    bool          // Reload each snapshot after copying
}

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// Result describes one completed snapshot run.
type Result struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Duration time.Duration `json:"duration"`
	Verified bool          `json:"verified"`
}

// Service owns the snapshot directory and the optional scheduler.
type Service struct {
	graphPath string
	dir       string
	interval  time.Duration
	keep      int
	verify    bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewService validates the options and creates the snapshot directory.
func NewService(opts Options) (*Service, error) {
	if opts.GraphPath == "" {
		return nil, fmt.Errorf("graph path is required")
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Keep <= 0 {
		opts.Keep = 10
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Service{
		graphPath: opts.GraphPath,
		dir:       opts.Dir,
		interval:  opts.Interval,
		keep:      opts.Keep,
		verify:    opts.Verify,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start runs the snapshot scheduler until the context is cancelled or Stop
// is called. A failed scheduled snapshot is logged and the schedule
// continues.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("backup scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("backup: scheduler started, interval=%v dir=%s keep=%d", s.interval, s.dir, s.keep)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if result, err := s.SnapshotNow(ctx); err != nil {
				log.Printf("backup: scheduled snapshot failed: %v", err)
			} else {
				log.Printf("backup: snapshot %s (%d bytes, %v, verified=%v)",
					result.Path, result.Size, result.Duration.Round(time.Millisecond), result.Verified)
			}
		}
	}
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopCh)
		s.running = false
	}
}

// SnapshotNow copies the graph file into the snapshot directory, verifies
// the copy when enabled, and applies retention. The snapshot name embeds the
// timestamp and a short unique suffix so two snapshots in the same second
// never collide.
func (s *Service) SnapshotNow(ctx context.Context) (*Result, error) {
	start := time.Now()

	if _, err := os.Stat(s.graphPath); err != nil {
		return nil, fmt.Errorf("graph file: %w", err)
	}

	name := fmt.Sprintf("mnemo-%s-%s%s",
		start.UTC().Format("20060102-150405"), uuid.New().String()[:8], snapshotSuffix)
	dest := filepath.Join(s.dir, name)

	size, err := copyFile(s.graphPath, dest)
	if err != nil {
		return nil, fmt.Errorf("copy snapshot: %w", err)
	}

	result := &Result{Path: dest, Size: size}
	if s.verify {
		if err := verifySnapshot(ctx, dest); err != nil {
			_ = os.Remove(dest)
			return nil, fmt.Errorf("snapshot verification: %w", err)
		}
		result.Verified = true
	}

	if err := s.applyRetention(); err != nil {
		// Retention failure never fails the snapshot itself.
		log.Printf("backup: retention: %v", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// ListSnapshots returns the stored snapshots, newest first.
func (s *Service) ListSnapshots() ([]SnapshotInfo, error) {
	return listSnapshots(s.dir)
}

// Restore replaces the graph file with a snapshot. The current file, when
// present, is first verified to be restorable from by keeping a .pre-restore
// copy alongside it; the copy is removed on success.
func (s *Service) Restore(ctx context.Context, snapshotPath string) error {
	if _, err := os.Stat(snapshotPath); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := verifySnapshot(ctx, snapshotPath); err != nil {
		return fmt.Errorf("snapshot failed verification, refusing to restore: %w", err)
	}

	preRestore := s.graphPath + ".pre-restore"
	hadCurrent := false
	if _, err := os.Stat(s.graphPath); err == nil {
		if _, err := copyFile(s.graphPath, preRestore); err != nil {
			return fmt.Errorf("pre-restore copy: %w", err)
		}
		hadCurrent = true
	}

	if _, err := copyFile(snapshotPath, s.graphPath); err != nil {
		if hadCurrent {
			if _, rbErr := copyFile(preRestore, s.graphPath); rbErr != nil {
				return fmt.Errorf("restore failed and rollback failed: %v (restore error: %w)", rbErr, err)
			}
			return fmt.Errorf("restore failed, previous file restored: %w", err)
		}
		return fmt.Errorf("restore: %w", err)
	}

	if hadCurrent {
		_ = os.Remove(preRestore)
	}
	log.Printf("backup: restored %s from %s", s.graphPath, snapshotPath)
	return nil
}

// verifySnapshot reloads a snapshot through the graph store.
func verifySnapshot(ctx context.Context, path string) error {
	store, err := jsonl.NewStore(path)
	if err != nil {
		return err
	}
	_, err = store.Load(ctx)
	return err
}

// applyRetention deletes the oldest snapshots beyond the keep count.
func (s *Service) applyRetention() error {
	snapshots, err := listSnapshots(s.dir)
	if err != nil {
		return err
	}
	if len(snapshots) <= s.keep {
		return nil
	}

	var lastErr error
	for _, old := range snapshots[s.keep:] {
		if err := os.Remove(old.Path); err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("delete old snapshots: %w", lastErr)
	}
	return nil
}

// listSnapshots scans the directory, newest first by modification time.
func listSnapshots(dir string) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot directory: %w", err)
	}

	var snapshots []SnapshotInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, SnapshotInfo{
			Path:      filepath.Join(dir, entry.Name()),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// copyFile copies src to dest via a temp file and rename, returning the
// byte count.
func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return n, nil
}
