package database

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const backupTimeLayout = "20060102_150405"

// BackupFile is a zipped snapshot of the database, named
// <db name>_<timestamp>.zip.
type BackupFile struct {
	Path      string
	CreatedAt time.Time
	Size      int64
}

func (d *Database) BackupDir() string {
	return d.backupDir
}

func (d *Database) backupPrefix() string {
	base := filepath.Base(d.path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_"
}

// Backup snapshots the database with VACUUM INTO and keeps only the zipped copy.
func (d *Database) Backup(ctx context.Context) error {
	if err := os.MkdirAll(d.backupDir, 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := d.backupPrefix() + time.Now().Format(backupTimeLayout)
	snapshot := filepath.Join(d.backupDir, name+".db")
	if _, err := d.write.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return fmt.Errorf("vacuuming database into '%s': %w", snapshot, err)
	}
	defer func() {
		if err := os.Remove(snapshot); err != nil {
			d.logger.Warn("could not remove uncompressed snapshot", slog.String("path", snapshot), slog.Any("error", err))
		}
	}()

	zipPath := filepath.Join(d.backupDir, name+".zip")
	if err := zipFile(snapshot, zipPath, filepath.Base(d.path)); err != nil {
		os.Remove(zipPath)
		return fmt.Errorf("compress backup: %w", err)
	}

	d.logger.Info("database backup complete", slog.String("filename", zipPath))
	return nil
}

func zipFile(src, dest, entryName string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entryName,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	return zw.Close()
}

// ListBackups returns the backups of this database, newest first. Other
// files in the backup directory are ignored.
func (d *Database) ListBackups() ([]BackupFile, error) {
	entries, err := os.ReadDir(d.backupDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []BackupFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	prefix := d.backupPrefix()
	backups := []BackupFile{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".zip") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".zip")
		createdAt, err := time.ParseInLocation(backupTimeLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat backup %s: %w", name, err)
		}
		backups = append(backups, BackupFile{
			Path:      filepath.Join(d.backupDir, name),
			CreatedAt: createdAt,
			Size:      info.Size(),
		})
	}

	slices.SortFunc(backups, func(a, b BackupFile) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return backups, nil
}

// PurgeBackups removes backups older than retentionDays. Zero or less keeps all.
func (d *Database) PurgeBackups(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}

	backups, err := d.ListBackups()
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, b := range backups {
		if !b.CreatedAt.Before(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d.logger.Debug("deleting old backup", slog.String("path", b.Path))
		if err := os.Remove(b.Path); err != nil {
			return fmt.Errorf("remove old backup '%s': %w", b.Path, err)
		}
		removed++
	}

	d.logger.Info("backup purge complete", slog.Int("removed", removed))
	return nil
}
