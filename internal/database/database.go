package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/lingua/internal/config"
	"github.com/mrlokans/lingua/internal/entities"
	"github.com/mrlokans/lingua/internal/logging"
)

// Database wraps the gorm handle with the driver it was opened with.
type Database struct {
	DB     *gorm.DB
	driver config.DatabaseDriver
}

// NewDatabase opens the configured datastore and migrates every entity.
// Migration runs under ctx; a cancelled ctx closes the pool before returning.
func NewDatabase(ctx context.Context, cfg config.Database, log *zap.Logger) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DatabaseDriverSQLite, "":
		// Foreign keys are off by default in sqlite; cascades rely on them.
		dialector = sqlite.Open(cfg.Path + "?_foreign_keys=on&_busy_timeout=5000")
	case config.DatabaseDriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}

	if log == nil {
		log = zap.NewNop()
	}
	db, err := open(ctx, dialector, gormLogger(log, logging.GormLevel(cfg.LogLevel)))
	if err != nil {
		return nil, err
	}
	db.driver = cfg.Driver

	log.Info("database initialized", zap.String("driver", string(cfg.Driver)), zap.String("path", cfg.Path))
	return db, nil
}

// NewSQLite opens (or creates) a sqlite database at path with logging silenced.
func NewSQLite(path string) (*Database, error) {
	db, err := open(context.Background(), sqlite.Open(path+"?_foreign_keys=on"), logger.Default.LogMode(logger.Silent))
	if err != nil {
		return nil, err
	}
	db.driver = config.DatabaseDriverSQLite
	return db, nil
}

func gormLogger(log *zap.Logger, level logger.LogLevel) logger.Interface {
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func open(ctx context.Context, dialector gorm.Dialector, gormLog logger.Interface) (*Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{DB: db}
	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

// Migrate creates or updates the schema for every entity.
func (d *Database) Migrate(ctx context.Context) error {
	if err := d.DB.WithContext(ctx).AutoMigrate(entities.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Driver() config.DatabaseDriver {
	return d.driver
}

// Ping checks the connection pool.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Tables returns the table names managed by the application, in migration order.
func (d *Database) Tables() ([]string, error) {
	var names []string
	for _, model := range entities.All() {
		stmt := &gorm.Statement{DB: d.DB}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}
