// Package backup snapshots the sqlite database, before migrations and on
// demand, and restores a snapshot in place.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/timeblock/internal/logger"
)

const (
	// DefaultKeep is how many snapshots survive rotation.
	DefaultKeep = 14
	DirName     = "backups"
	filePrefix  = "timeblock-"
	fileSuffix  = ".db"
	stampLayout = "20060102-150405"
)

// Snapshot is one backup file on disk.
type Snapshot struct {
	Path    string
	Label   string
	TakenAt time.Time
	Size    int64
}

type Manager struct {
	dbPath string
	dir    string
	keep   int
	now    func() time.Time
}

// NewManager keeps snapshots of dbPath in a backups directory next to it.
func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), DirName),
		keep:   DefaultKeep,
		now:    time.Now,
	}
}

func (m *Manager) Dir() string {
	return m.dir
}

// Create writes a consistent copy of the database named after label and the
// current time, then prunes the oldest snapshots beyond the retention count.
func (m *Manager) Create(ctx context.Context, label string) (string, error) {
	path, err := m.create(ctx, label)
	if err != nil {
		return "", err
	}
	if err := m.prune(); err != nil {
		logger.Warn("Failed to rotate old backups", "dir", m.dir, "error", err)
	}
	return path, nil
}

func (m *Manager) create(ctx context.Context, label string) (string, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	label = sanitizeLabel(label)
	stamp := m.now().UTC().Format(stampLayout)
	path := filepath.Join(m.dir, filePrefix+label+"-"+stamp+fileSuffix)
	for n := 1; fileExists(path); n++ {
		if n > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s%s-%s.%d%s", filePrefix, label, stamp, n, fileSuffix))
	}

	db, err := sql.Open("sqlite", m.dbPath+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := ping(ctx, db); err != nil {
		return "", fmt.Errorf("database appears to be corrupted: %w", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("failed to snapshot database: %w", err)
	}
	logger.Info("Database snapshot created", "path", path)
	return path, nil
}

// List returns snapshots newest first. Files that do not look like ours are
// ignored.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	snapshots := []Snapshot{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		label, taken, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Path:    filepath.Join(m.dir, entry.Name()),
			Label:   label,
			TakenAt: taken,
			Size:    info.Size(),
		})
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].TakenAt.Equal(snapshots[j].TakenAt) {
			return snapshots[i].TakenAt.After(snapshots[j].TakenAt)
		}
		return snapshots[i].Path > snapshots[j].Path
	})
	return snapshots, nil
}

func (m *Manager) prune() error {
	snapshots, err := m.List()
	if err != nil {
		return err
	}
	for i := m.keep; i < len(snapshots); i++ {
		if err := os.Remove(snapshots[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", snapshots[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the database with a snapshot. The current database is
// snapshotted first under the "prerestore" label. The store must be closed.
func (m *Manager) Restore(ctx context.Context, path string) error {
	if err := verify(ctx, path); err != nil {
		return fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}
	if fileExists(m.dbPath) {
		if _, err := m.create(ctx, "prerestore"); err != nil {
			return fmt.Errorf("failed to back up current database before restore: %w", err)
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to restore database: %w", err)
	}
	// Stale WAL files from the replaced database would be replayed on top.
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + suffix)
	}
	return nil
}

func verify(ctx context.Context, path string) error {
	if !fileExists(path) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()
	return ping(ctx, db)
}

func ping(ctx context.Context, db *sql.DB) error {
	var n int
	return db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n)
}

// parseName splits timeblock-<label>-<stamp>[.n].db.
func parseName(name string) (string, time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", time.Time{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		rest = rest[:dot]
	}
	if len(rest) < len(stampLayout)+2 {
		return "", time.Time{}, false
	}
	label := rest[:len(rest)-len(stampLayout)-1]
	taken, err := time.Parse(stampLayout, rest[len(rest)-len(stampLayout):])
	if err != nil || label == "" {
		return "", time.Time{}, false
	}
	return label, taken, true
}

func sanitizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	var b strings.Builder
	for _, r := range label {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "manual"
	}
	return b.String()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
