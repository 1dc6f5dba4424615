package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	"forum-scraper/pkg/config"
	"forum-scraper/pkg/models"
	"forum-scraper/pkg/utils"
)

// SQLiteSink writes records into a table of a local SQLite file
type SQLiteSink struct {
	db    *sql.DB
	path  string
	table string
	log   *logrus.Entry
}

// NewSQLiteSink opens or creates the database at cfg.Path and creates the table if missing
func NewSQLiteSink(ctx context.Context, cfg config.SinkConfig, logger *logrus.Entry) (*SQLiteSink, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("%w: %w: creating directory for '%s': %w", utils.ErrSink, utils.ErrFilesystem, cfg.Path, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path+"?mode=rwc&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: %w: opening sqlite '%s': %w", utils.ErrSink, utils.ErrDatabase, cfg.Path, err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteSink{db: db, path: cfg.Path, table: cfg.Collection, log: logger}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Infof("SQLite sink ready at %s, table '%s'", cfg.Path, s.table)
	return s, nil
}

func (s *SQLiteSink) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w: opening sqlite '%s': %w", utils.ErrSink, utils.ErrDatabase, s.path, err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("%w: %w: enabling WAL: %w", utils.ErrSink, utils.ErrDatabase, err)
	}
	for _, stmt := range sqliteSchema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w: creating schema for '%s': %w", utils.ErrSink, utils.ErrDatabase, s.table, err)
		}
	}
	return nil
}

// Write inserts all records in one transaction
func (s *SQLiteSink) Write(ctx context.Context, result models.CrawlResult) error {
	records := orderedRecords(result)
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w: begin: %w", utils.ErrSink, utils.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertStatement(s.table, func(int) string { return "?" }))
	if err != nil {
		return fmt.Errorf("%w: %w: prepare insert: %w", utils.ErrSink, utils.ErrDatabase, err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Title, r.URL, r.Author, r.Text, priceValue(r.Price), r.Currency); err != nil {
			return fmt.Errorf("%w: %w: inserting record %d (%s): %w", utils.ErrSink, utils.ErrDatabase, i, r.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w: commit: %w", utils.ErrSink, utils.ErrDatabase, err)
	}
	s.log.Infof("Inserted %d rows into '%s'", len(records), s.table)
	return nil
}

// Records reads back every row in insertion order. Price is stored as REAL,
// so it comes back normalized to two decimals ("1500" reads as "1500.00")
// and an unparsable price reads as DefaultPrice.
func (s *SQLiteSink) Records(ctx context.Context) ([]models.PostRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT title, url, author, text, price, currency FROM "+quoteIdent(s.table)+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: query '%s': %w", utils.ErrDatabase, s.table, err)
	}
	defer rows.Close()

	var records []models.PostRecord
	for rows.Next() {
		var r models.PostRecord
		var price float64
		if err := rows.Scan(&r.Title, &r.URL, &r.Author, &r.Text, &price, &r.Currency); err != nil {
			return nil, fmt.Errorf("%w: scan '%s': %w", utils.ErrDatabase, s.table, err)
		}
		r.Price = fmt.Sprintf("%.2f", price)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing sqlite '%s': %w", utils.ErrDatabase, s.path, err)
	}
	return nil
}
