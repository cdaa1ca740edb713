package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stellaris/internal/config"
)

// BackupService periodically snapshots the JSON data files and the audit database.
type BackupService struct {
	dataDir  string
	db       *DB
	config   config.BackupConfig
	interval time.Duration
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBackupService(dataDir string, db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		dataDir:  dataDir,
		db:       db,
		config:   cfg,
		interval: cfg.Interval(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	s.logger.Info().Dur("interval", s.interval).Str("path", s.config.Path).Msg("Backup service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run first backup immediately
	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes one snapshot directory and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	timestamp := s.now().Format("20060102_150405")
	backupPath := filepath.Join(s.config.Path, "backup_"+timestamp)

	if err := os.MkdirAll(backupPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	s.logger.Info().Str("path", backupPath).Msg("Performing backup")

	files, err := os.ReadDir(s.dataDir)
	if err != nil {
		return "", fmt.Errorf("read data dir: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		if err := copyFile(filepath.Join(s.dataDir, file.Name()), filepath.Join(backupPath, file.Name())); err != nil {
			return "", err
		}
	}

	if s.db != nil {
		dst := filepath.Join(backupPath, "audit.db")
		if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
			return "", fmt.Errorf("snapshot audit db: %w", err)
		}
	}

	s.logger.Info().Msg("Backup completed successfully")
	return backupPath, nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}
	return destination.Close()
}

func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.config.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "backup_") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("backup", entry.Name()).Msg("Deleting old backup")
			if err := os.RemoveAll(filepath.Join(s.config.Path, entry.Name())); err != nil {
				s.logger.Error().Err(err).Str("backup", entry.Name()).Msg("Failed to delete old backup")
			}
		}
	}
}
