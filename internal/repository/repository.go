package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ganetisphere/pkg/log"

	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const ctxTxKey = "TxKey"

// ErrReservedColumn 通过通用列更新路径修改缓存/控制列属于编程错误，立即拒绝
var ErrReservedColumn = errors.New("reserved column cannot be set through the generic update path")

// reservedColumns 缓存与控制列只能由缓存引擎维护
var reservedColumns = map[string]struct{}{
	"hash":            {},
	"serialized_info": {},
	"mtime":           {},
	"cached_at":       {},
	"ignore_cache":    {},
}

// checkReservedColumns 校验通用更新的列集合
func checkReservedColumns(columns map[string]interface{}) error {
	for col := range columns {
		if _, reserved := reservedColumns[col]; reserved {
			return fmt.Errorf("%w: %s", ErrReservedColumn, col)
		}
	}
	return nil
}

type Repository struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewRepository(logger *log.Logger, db *gorm.DB) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type Transaction interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewTransaction(r *Repository) Transaction {
	return r
}

// DB 返回事务中的 db 句柄，不在事务中则返回默认句柄
func (r *Repository) DB(ctx context.Context) *gorm.DB {
	v := ctx.Value(ctxTxKey)
	if v != nil {
		if tx, ok := v.(*gorm.DB); ok {
			return tx
		}
	}
	return r.db.WithContext(ctx)
}

func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, ctxTxKey, tx) //nolint:staticcheck
		return fn(ctx)
	})
}

func NewDB(conf *viper.Viper, l *log.Logger) *gorm.DB {
	var (
		db  *gorm.DB
		err error
	)

	logger := zapGormLogger{l}
	driver := conf.GetString("data.db.user.driver")
	dsn := conf.GetString("data.db.user.dsn")

	switch driver {
	case "mysql":
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger})
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger})
	default:
		panic("unknown db driver: " + driver)
	}
	if err != nil {
		panic(err)
	}
	db = db.Debug()
	return db
}

// zapGormLogger 将 gorm 日志接入 zap
type zapGormLogger struct {
	l *log.Logger
}

func (z zapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return z
}

func (z zapGormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	z.l.WithContext(ctx).Sugar().Infof(msg, args...)
}

func (z zapGormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	z.l.WithContext(ctx).Sugar().Warnf(msg, args...)
}

func (z zapGormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	z.l.WithContext(ctx).Sugar().Errorf(msg, args...)
}

func (z zapGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	sql, rows := fc()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		z.l.WithContext(ctx).Error("sql trace", zap.String("sql", sql), zap.Int64("rows", rows), zap.Error(err))
		return
	}
	z.l.WithContext(ctx).Debug("sql trace", zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", time.Since(begin)))
}
