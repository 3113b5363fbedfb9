package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/echolens-ai/echolens/internal/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is considered slow.
const DefaultSlowQueryThreshold = 500 * time.Millisecond

// queryLogger routes GORM output to the datastore logger. Statements are
// logged at trace level with the request trace ID when one is set.
type queryLogger struct {
	log  logger.Logger
	slow time.Duration
}

func createGormLogger(dbType string) gormlogger.Interface {
	return &queryLogger{
		log:  GetLogger().With(logger.String("db_type", dbType)),
		slow: DefaultSlowQueryThreshold,
	}
}

func (q *queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return q }

func (q *queryLogger) Info(ctx context.Context, msg string, data ...any) {
	q.log.WithContext(ctx).Debug(fmt.Sprintf(msg, data...))
}

func (q *queryLogger) Warn(ctx context.Context, msg string, data ...any) {
	q.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (q *queryLogger) Error(ctx context.Context, msg string, data ...any) {
	q.log.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	log := q.log.WithContext(ctx).With(
		logger.String("sql", sql),
		logger.Int64("rows", rows),
		logger.Duration("elapsed", elapsed))

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("query failed", logger.Error(err))
	case q.slow > 0 && elapsed > q.slow:
		log.Warn("slow query")
	default:
		log.Trace("query")
	}
}
