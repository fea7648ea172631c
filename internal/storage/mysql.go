package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/config"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/storage/models"
)

var mysqlTracer = otel.Tracer("apitruthtalent/storage/mysql")

// ErrDuplicateEmail reports an insert that lost the race on the unique email
// index. Callers re-run reconciliation: the row that won now exists.
var ErrDuplicateEmail = errors.New("candidate email already exists")

type otelSpanKey struct{}

// GormTracingPlugin adds an OpenTelemetry span around every GORM operation.
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin creates the tracing plugin for the named database.
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{tracer: mysqlTracer, dbName: dbName}
}

func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize registers before/after callbacks for every CRUD verb.
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

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
	return cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after())
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName), opts...)
		db.Statement.Context = context.WithValue(newCtx, otelSpanKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(otelSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// Part of normal control flow, not a failure.
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// MySQL is the relational store: candidate rows plus the per-document
// processing state.
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL connects, registers tracing and migrates the schema.
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config cannot be nil")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		// Translate driver errors so a unique-index violation surfaces as
		// gorm.ErrDuplicatedKey instead of a raw MySQL error number.
		TranslateError: true,
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("registering tracing plugin: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return m, nil
}

// autoMigrateSchema migrates with a silent session so migration SQL does not
// flood the logs.
func (m *MySQL) autoMigrateSchema() error {
	silentLogger := gormlogger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Silent,
			IgnoreRecordNotFoundError: true,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})
	return silentDB.AutoMigrate(
		&models.Candidat{},
		&models.CVDocument{},
	)
}

// DB exposes the GORM handle for callers that need raw access.
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close closes the underlying connection pool.
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// FindCandidatByEmail returns the candidate row with exactly that email, or
// nil when none exists.
func (m *MySQL) FindCandidatByEmail(ctx context.Context, email string) (*models.Candidat, error) {
	var row models.Candidat
	err := m.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying candidat by email: %w", err)
	}
	return &row, nil
}

// GetCandidat loads a candidate row by primary key.
func (m *MySQL) GetCandidat(ctx context.Context, id string) (*models.Candidat, error) {
	var row models.Candidat
	if err := m.db.WithContext(ctx).Where("candidat_id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("loading candidat %s: %w", id, err)
	}
	return &row, nil
}

// InsertCandidat creates a new candidate row. A unique-index conflict on
// email comes back as ErrDuplicateEmail.
func (m *MySQL) InsertCandidat(ctx context.Context, row *models.Candidat) error {
	err := m.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("inserting candidat: %w", ErrDuplicateEmail)
	}
	if err != nil {
		return fmt.Errorf("inserting candidat: %w", err)
	}
	return nil
}

// UpdateCandidatFields applies a partial update to an existing row. List
// values in fields are serialized to their JSON columns here.
func (m *MySQL) UpdateCandidatFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	values, err := models.NormalizeUpdateValues(fields)
	if err != nil {
		return err
	}
	err = m.db.WithContext(ctx).
		Model(&models.Candidat{}).
		Where("candidat_id = ?", id).
		Updates(values).Error
	if err != nil {
		return fmt.Errorf("updating candidat %s: %w", id, err)
	}
	return nil
}

// CreateCVDocument records a newly seen document.
func (m *MySQL) CreateCVDocument(ctx context.Context, doc *models.CVDocument) error {
	if err := m.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("creating cv_documents row: %w", err)
	}
	return nil
}

// FindCVDocumentByObject returns the tracking row for a bucket/key pair, or
// nil when the document was never seen.
func (m *MySQL) FindCVDocumentByObject(ctx context.Context, bucket, objectKey string) (*models.CVDocument, error) {
	var doc models.CVDocument
	err := m.db.WithContext(ctx).
		Where("bucket = ? AND object_key = ?", bucket, objectKey).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cv_documents row: %w", err)
	}
	return &doc, nil
}

// UpdateCVDocumentStatus moves a document to the given status.
// failureReason is only stored alongside a FAILED status.
func (m *MySQL) UpdateCVDocumentStatus(ctx context.Context, documentID, status string, failureReason *string) error {
	updates := map[string]interface{}{"status": status}
	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}
	err := m.db.WithContext(ctx).
		Model(&models.CVDocument{}).
		Where("document_id = ?", documentID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("updating cv_documents status: %w", err)
	}
	return nil
}

// UpdateCVDocumentFields applies a partial update to a tracking row.
func (m *MySQL) UpdateCVDocumentFields(ctx context.Context, documentID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	err := m.db.WithContext(ctx).
		Model(&models.CVDocument{}).
		Where("document_id = ?", documentID).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("updating cv_documents row: %w", err)
	}
	return nil
}

// SearchQuery filters candidate rows. Zero values mean "no filter".
type SearchQuery struct {
	// Name matches nom or prenom, case-insensitively, as a substring.
	Name string
	// Skill must appear in the competences JSON array.
	Skill string
	// MinScore keeps rows whose confidence score is at least this value.
	MinScore int
	Limit    int
	Offset   int
}

// SearchCandidates lists candidate rows matching the query, best score
// first.
func (m *MySQL) SearchCandidates(ctx context.Context, q SearchQuery) ([]models.Candidat, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SearchCandidates",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("search.name", q.Name),
			attribute.String("search.skill", q.Skill),
			attribute.Int("search.min_score", q.MinScore),
		))
	defer span.End()

	db := m.db.WithContext(ctx).Model(&models.Candidat{})
	if q.Name != "" {
		pattern := "%" + q.Name + "%"
		db = db.Where("nom LIKE ? OR prenom LIKE ?", pattern, pattern)
	}
	if q.Skill != "" {
		db = db.Where("JSON_SEARCH(competences, 'one', ?) IS NOT NULL", q.Skill)
	}
	if q.MinScore > 0 {
		db = db.Where("score >= ?", q.MinScore)
	}

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.Candidat
	err := db.Order("score DESC, date_analyse DESC").
		Limit(limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching candidats: %w", err)
	}
	span.SetAttributes(attribute.Int("search.results", len(rows)))
	span.SetStatus(codes.Ok, "")
	return rows, nil
}
