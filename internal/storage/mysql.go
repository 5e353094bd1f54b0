package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"profile-insight-go/internal/config"
	"profile-insight-go/internal/logger"
	"profile-insight-go/internal/storage/models"
	"profile-insight-go/internal/tracing"
	"profile-insight-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("profile-insight-go/storage/mysql")

// ErrSubmissionNotFound 档案提交不存在
var ErrSubmissionNotFound = errors.New("档案提交不存在")

type gormSpanKey struct{}

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	// 为各种操作类型注册回调
	cb := db.Callback()

	// 为所有CRUD操作注册Before和After回调
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		// 如果是错误跳过且DisableErrSkip为true，则跳过追踪
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		// 从DB获取上下文
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		// 获取操作表名，如果为空则使用"unknown"
		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		// 创建一个新的span
		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		// 获取SQL语句（如果有）
		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", tracing.SafeSQL(sqlStatement)),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		// 从DB上下文中获取span
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", max(db.Statement.RowsAffected, 0)))

		// 记录错误（如果有），但正确处理ErrRecordNotFound
		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				// 真正的错误情况
				tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true, // 默认禁用错误跳过，减少误报错误
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// MySQL 保存档案提交、分析结果和 outbox 消息
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(cfg.LogLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// newGormLogger GORM 的日志写入 zerolog，级别 1-4 对应 Silent/Error/Warn/Info
func newGormLogger(level int) gormlogger.Interface {
	var logLevel gormlogger.LogLevel
	switch level {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	case 4:
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Warn
	}
	w := logger.Logger.With().Str("component", "gorm").Logger()
	return gormlogger.New(
		log.New(w, "", 0),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: m.db.Logger.LogMode(gormlogger.Silent)})
	return silentDB.AutoMigrate(
		&models.ProfileSubmission{},
		&models.ProfileAnalysis{},
		&models.OutboxMessage{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSubmissionWithEvent 在同一个事务里写入档案提交和对应的 outbox 事件
func (m *MySQL) CreateSubmissionWithEvent(ctx context.Context, submission *models.ProfileSubmission, event *models.OutboxMessage) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return fmt.Errorf("保存档案提交失败: %w", err)
		}
		if event == nil {
			return nil
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("保存outbox消息失败: %w", err)
		}
		return nil
	})
}

// GetSubmission 按ID读取档案提交
func (m *MySQL) GetSubmission(ctx context.Context, submissionID string) (*models.ProfileSubmission, error) {
	var submission models.ProfileSubmission
	err := m.db.WithContext(ctx).Where("submission_id = ?", submissionID).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询档案提交失败: %w", err)
	}
	return &submission, nil
}

// GetLatestAnalysis 读取最近一次分析，没有时返回 nil, nil
func (m *MySQL) GetLatestAnalysis(ctx context.Context, submissionID string) (*models.ProfileAnalysis, error) {
	var analysis models.ProfileAnalysis
	err := m.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at desc").
		Order("id desc").
		First(&analysis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询分析结果失败: %w", err)
	}
	return &analysis, nil
}

// SaveAnalysis 保存分析结果并把提交状态改为已分析
func (m *MySQL) SaveAnalysis(ctx context.Context, analysis *models.ProfileAnalysis) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(analysis).Error; err != nil {
			return fmt.Errorf("保存分析结果失败: %w", err)
		}
		return updateStatus(tx, analysis.SubmissionID, models.StatusAnalyzed)
	})
}

// RequestAnalysis 标记提交为分析中，并写入分析请求事件
func (m *MySQL) RequestAnalysis(ctx context.Context, submissionID string, event *models.OutboxMessage) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ProfileSubmission{}).Where("submission_id = ?", submissionID).Count(&n).Error; err != nil {
			return fmt.Errorf("查询档案提交失败: %w", err)
		}
		if n == 0 {
			return ErrSubmissionNotFound
		}
		if err := updateStatus(tx, submissionID, models.StatusAnalyzing); err != nil {
			return err
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("保存outbox消息失败: %w", err)
		}
		return nil
	})
}

// UpdateSubmissionStatus 更新提交的处理状态
func (m *MySQL) UpdateSubmissionStatus(ctx context.Context, submissionID, status string) error {
	return updateStatus(m.db.WithContext(ctx), submissionID, status)
}

func updateStatus(tx *gorm.DB, submissionID, status string) error {
	res := tx.Model(&models.ProfileSubmission{}).
		Where("submission_id = ?", submissionID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("更新提交状态失败: %w", res.Error)
	}
	return nil
}

// ListSubmissionIDs 按ID顺序分页返回 afterID 之后的提交ID，用于批量重解析
func (m *MySQL) ListSubmissionIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := m.db.WithContext(ctx).
		Model(&models.ProfileSubmission{}).
		Where("submission_id > ?", afterID).
		Order("submission_id").
		Limit(limit).
		Pluck("submission_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询档案提交列表失败: %w", err)
	}
	return ids, nil
}

// UpdateSubmissionRecord 覆盖提交保存的档案记录，状态不变
func (m *MySQL) UpdateSubmissionRecord(ctx context.Context, submissionID string, record types.ProfileRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化档案记录失败: %w", err)
	}
	res := m.db.WithContext(ctx).Model(&models.ProfileSubmission{}).
		Where("submission_id = ?", submissionID).
		Update("record", datatypes.JSON(data))
	if res.Error != nil {
		return fmt.Errorf("更新档案记录失败: %w", res.Error)
	}
	return nil
}
