package storage

import (
	"context"

	"github.com/sirupsen/logrus"

	"forum-scraper/pkg/config"
	"forum-scraper/pkg/utils"
)

// NewSink opens the sink selected by cfg.Type. cfg must already be validated.
func NewSink(ctx context.Context, cfg config.SinkConfig, logger *logrus.Entry) (Sink, error) {
	sinkLog := logger.WithFields(logrus.Fields{"component": "sink", "sink": cfg.Type})
	switch cfg.Type {
	case config.SinkPostgres:
		return NewPostgresSink(ctx, cfg, sinkLog)
	case config.SinkSQLite:
		return NewSQLiteSink(ctx, cfg, sinkLog)
	case config.SinkBadger:
		return NewBadgerSink(cfg, sinkLog)
	case config.SinkJSONL:
		return NewJSONLSink(cfg, sinkLog)
	default:
		return nil, utils.WrapErrorf(utils.ErrConfigValidation, "unknown sink type '%s'", cfg.Type)
	}
}
