package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/sirupsen/logrus"

	"forum-scraper/pkg/config"
	"forum-scraper/pkg/log"
	"forum-scraper/pkg/models"
	"forum-scraper/pkg/utils"
)

const (
	urlColumnWidth      = 300
	authorColumnWidth   = 50
	currencyColumnWidth = 8
)

// PostgresSink writes records into a PostgreSQL table through a pgx pool
type PostgresSink struct {
	pool      *pgxpool.Pool
	table     string
	batchSize int
	log       *logrus.Entry
}

// NewPostgresSink connects to cfg.DSN and creates the table and indexes if missing
func NewPostgresSink(ctx context.Context, cfg config.SinkConfig, logger *logrus.Entry) (*PostgresSink, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: parsing postgres dsn: %w", utils.ErrSink, utils.ErrDatabase, err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 2
	}
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   log.NewPgxLogrusAdapter(logger.WithField("component", "pgx")),
		LogLevel: log.PgxLogLevel(logger.Logger.GetLevel()),
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: connecting to postgres: %w", utils.ErrSink, utils.ErrDatabase, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w: pinging postgres: %w", utils.ErrSink, utils.ErrDatabase, err)
	}

	s := &PostgresSink{
		pool:      pool,
		table:     cfg.Collection,
		batchSize: cfg.BatchSize,
		log:       logger,
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Infof("Postgres sink ready, table '%s'", s.table)
	return s, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema(s.table) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w: creating schema for '%s': %w", utils.ErrSink, utils.ErrDatabase, s.table, err)
		}
	}
	return nil
}

// Write inserts all records in batches of batchSize
func (s *PostgresSink) Write(ctx context.Context, result models.CrawlResult) error {
	records := orderedRecords(result)
	if len(records) == 0 {
		return nil
	}
	batch := s.batchSize
	if batch <= 0 {
		batch = 200
	}
	insert := insertStatement(s.table, func(n int) string { return "$" + strconv.Itoa(n) })

	total := 0
	for i := 0; i < len(records); i += batch {
		j := min(i+batch, len(records))
		b := &pgx.Batch{}
		for _, r := range records[i:j] {
			b.Queue(insert,
				r.Title,
				truncateRunes(r.URL, urlColumnWidth),
				truncateRunes(r.Author, authorColumnWidth),
				r.Text,
				priceValue(r.Price),
				truncateRunes(r.Currency, currencyColumnWidth),
			)
		}
		if err := s.sendBatch(ctx, b); err != nil {
			return fmt.Errorf("%w: %w: inserting records %d-%d into '%s': %w", utils.ErrSink, utils.ErrDatabase, i, j-1, s.table, err)
		}
		total += b.Len()
	}
	s.log.Infof("Inserted %d rows into '%s'", total, s.table)
	return nil
}

func (s *PostgresSink) sendBatch(ctx context.Context, b *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, b)
	for range b.Len() {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

// Count returns the number of rows in the table
func (s *PostgresSink) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+quoteIdent(s.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: counting rows in '%s': %w", utils.ErrDatabase, s.table, err)
	}
	return n, nil
}

// Close closes the pool
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
