package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"forum-scraper/pkg/config"
	"forum-scraper/pkg/models"
	"forum-scraper/pkg/utils"
)

// JSONLSink writes one JSON object per record per line
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
	path string
	log  *logrus.Entry
}

// NewJSONLSink creates or truncates the file at cfg.Path
func NewJSONLSink(cfg config.SinkConfig, logger *logrus.Entry) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("%w: %w: creating directory for '%s': %w", utils.ErrSink, utils.ErrFilesystem, cfg.Path, err)
	}
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: open '%s': %w", utils.ErrSink, utils.ErrFilesystem, cfg.Path, err)
	}
	logger.Infof("JSONL sink ready: %s", cfg.Path)
	return &JSONLSink{file: file, path: cfg.Path, log: logger}, nil
}

// Write appends every record as one line
func (s *JSONLSink) Write(ctx context.Context, result models.CrawlResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("%w: %w: '%s' is closed", utils.ErrSink, utils.ErrFilesystem, s.path)
	}

	w := bufio.NewWriter(s.file)
	records := orderedRecords(result)
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", utils.ErrSink, err)
		}
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("%w: marshal %s: %w", utils.ErrSink, r.URL, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("%w: %w: write '%s': %w", utils.ErrSink, utils.ErrFilesystem, s.path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %w: flush '%s': %w", utils.ErrSink, utils.ErrFilesystem, s.path, err)
	}
	s.log.Infof("Wrote %d lines to %s", len(records), s.path)
	return nil
}

// Close syncs and closes the file
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	s.log.Debugf("Syncing and closing JSONL output file: %s", s.path)
	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	s.file = nil
	if syncErr != nil {
		return fmt.Errorf("%w: sync '%s': %w", utils.ErrFilesystem, s.path, syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close '%s': %w", utils.ErrFilesystem, s.path, closeErr)
	}
	return nil
}
