// Package backup uploads encrypted snapshots of the database to
// S3-compatible storage. Snapshots are sealed with a guardian-supplied
// passphrase before they leave the machine; the server never stores the
// passphrase.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ho8ae/growpromise-sub001/internal/config"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

// s3Client is the slice of the S3 API the manager uses, kept narrow for
// testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the manager's current state for the status endpoint.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

type Manager struct {
	mu     sync.RWMutex
	cfg    config.BackupConfig
	dbPath string
	status Status

	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger
}

// NewManager wires a backup manager. With no bucket or credentials
// configured it stays disabled and every operation reports that.
func NewManager(cfg config.BackupConfig, dbPath string, db *sql.DB, backups *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		dbPath:  dbPath,
		db:      db,
		backups: backups,
		logger:  logger,
		status:  Status{State: StateDisabled},
	}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		m.client = newS3Client(cfg)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg config.BackupConfig) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether S3 storage is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.backups.List(limit)
}

// RunNow checkpoints the database, encrypts a copy under the passphrase,
// and uploads it. A fresh salt is generated per snapshot and stored in the
// ciphertext header, so restore needs only the passphrase.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (*model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("backup not configured: S3 credentials missing")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase is required")
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("backup-%s.db.enc", timestamp)
	s3Key := "backups/" + filename

	record, err := m.backups.Create(filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	encrypted, err := m.snapshot(ctx, passphrase)
	if err != nil {
		m.fail(record.ID, err)
		return nil, err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          bytes.NewReader(encrypted),
		ContentLength: aws.Int64(int64(len(encrypted))),
	})
	if err != nil {
		m.fail(record.ID, fmt.Errorf("upload to s3: %w", err))
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	if err := m.backups.MarkCompleted(record.ID, int64(len(encrypted))); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "backup_id", record.ID, "key", s3Key, "bytes", len(encrypted))

	return m.backups.GetByID(record.ID)
}

func (m *Manager) snapshot(ctx context.Context, passphrase string) ([]byte, error) {
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("wal checkpoint: %w", err)
	}

	plaintext, err := os.ReadFile(m.dbPath)
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	encrypted, err := Encrypt(plaintext, passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("encrypt snapshot: %w", err)
	}
	return encrypted, nil
}

func (m *Manager) fail(recordID int64, err error) {
	if merr := m.backups.MarkFailed(recordID, err.Error()); merr != nil {
		m.logger.Error("mark backup failed", "backup_id", recordID, "error", merr)
	}
	m.setStatus(Status{State: StateError, Error: err.Error()})
}

// Download streams an encrypted snapshot back from S3.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, 0, fmt.Errorf("backup not configured")
	}

	record, err := m.backups.GetByID(backupID)
	if err != nil {
		return nil, 0, fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return nil, 0, fmt.Errorf("backup not found")
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, record.SizeBytes, nil
}

// Restore downloads and decrypts a snapshot, verifies its integrity, and
// swaps it in as the live database file. The caller is expected to restart
// the process afterwards; open connections still see the old file.
func (m *Manager) Restore(ctx context.Context, backupID int64, passphrase string) error {
	body, _, err := m.Download(ctx, backupID)
	if err != nil {
		return err
	}
	defer body.Close()

	encrypted, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	plaintext, err := Decrypt(encrypted, passphrase)
	if err != nil {
		return fmt.Errorf("decrypt snapshot: %w", err)
	}

	restored := filepath.Join(os.TempDir(), fmt.Sprintf("growpromise-restore-%d.db", backupID))
	defer os.Remove(restored)
	if err := os.WriteFile(restored, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}

	if err := verifyIntegrity(restored); err != nil {
		return err
	}

	if err := os.WriteFile(m.dbPath, plaintext, 0600); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(m.dbPath + "-wal")
	os.Remove(m.dbPath + "-shm")

	m.logger.Info("restore complete, restart required", "backup_id", backupID)
	return nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var integrity string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}
	return nil
}

// Cleanup removes S3 objects left behind by failed uploads older than a
// day. The rows stay as history.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil
	}

	backups, err := m.backups.List(1000)
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -1)
	for _, b := range backups {
		if b.Status != model.BackupStatusFailed || b.CreatedAt.After(cutoff) {
			continue
		}
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(b.S3Key),
		}); err != nil {
			m.logger.Warn("delete stale backup object", "key", b.S3Key, "error", err)
		}
	}
	return nil
}
