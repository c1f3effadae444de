package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite" // 纯 Go SQLite 驱动，注册为 "sqlite"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// =============================================================================
// 内嵌迁移文件
// =============================================================================

//go:embed migrations/postgres/*.sql
var postgresFS embed.FS

//go:embed migrations/mysql/*.sql
var mysqlFS embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

// DatabaseType 数据库类型
type DatabaseType string

const (
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeMySQL    DatabaseType = "mysql"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
)

// DefaultTableName 迁移版本表
const DefaultTableName = "schema_migrations"

// dialect 每种数据库的驱动名与迁移文件
type dialect struct {
	driverName string
	files      fs.FS
	dir        string
	wrap       func(db *sql.DB, table string) (database.Driver, error)
}

var dialects = map[DatabaseType]dialect{
	DatabaseTypePostgres: {
		driverName: "postgres",
		files:      postgresFS,
		dir:        "migrations/postgres",
		wrap: func(db *sql.DB, table string) (database.Driver, error) {
			return postgres.WithInstance(db, &postgres.Config{MigrationsTable: table})
		},
	},
	DatabaseTypeMySQL: {
		driverName: "mysql",
		files:      mysqlFS,
		dir:        "migrations/mysql",
		wrap: func(db *sql.DB, table string) (database.Driver, error) {
			return mysql.WithInstance(db, &mysql.Config{MigrationsTable: table})
		},
	},
	DatabaseTypeSQLite: {
		driverName: "sqlite",
		files:      sqliteFS,
		dir:        "migrations/sqlite",
		wrap: func(db *sql.DB, table string) (database.Driver, error) {
			return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: table})
		},
	},
}

func lookupDialect(t DatabaseType) (dialect, error) {
	d, ok := dialects[t]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database type: %s", t)
	}
	return d, nil
}

// MigrationStatus 单个迁移的状态
type MigrationStatus struct {
	Version uint
	Name    string
	Applied bool
	Dirty   bool
}

// MigrationInfo 当前迁移状态摘要
type MigrationInfo struct {
	CurrentVersion    uint
	Dirty             bool
	TotalMigrations   int
	AppliedMigrations int
	PendingMigrations int
}

// Config 迁移器配置
type Config struct {
	DatabaseType DatabaseType
	// DatabaseURL 连接串，格式见 BuildDatabaseURL
	DatabaseURL string
	// TableName 默认 schema_migrations
	TableName   string
	LockTimeout time.Duration
}

// Migrator 作业历史表的迁移操作
type Migrator interface {
	Up(ctx context.Context) error
	// Down 回滚最近一个迁移
	Down(ctx context.Context) error
	Version(ctx context.Context) (uint, bool, error)
	Status(ctx context.Context) ([]MigrationStatus, error)
	Info(ctx context.Context) (*MigrationInfo, error)
	Close() error
}

// DefaultMigrator 基于 golang-migrate 的 Migrator
type DefaultMigrator struct {
	config  Config
	dialect dialect
	migrate *migrate.Migrate
}

// NewMigrator 打开数据库并加载内嵌迁移
func NewMigrator(cfg *Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required")
	}
	c := *cfg
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = 15 * time.Second
	}

	d, err := lookupDialect(c.DatabaseType)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbDriver, err := d.wrap(db, c.TableName)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	src, err := iofs.New(d.files, d.dir)
	if err != nil {
		_ = dbDriver.Close()
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(c.DatabaseType), dbDriver)
	if err != nil {
		_ = dbDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.LockTimeout = c.LockTimeout

	return &DefaultMigrator{config: c, dialect: d, migrate: m}, nil
}

// Up 执行所有未应用的迁移
func (m *DefaultMigrator) Up(ctx context.Context) error {
	if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down 回滚最近一个迁移
func (m *DefaultMigrator) Down(ctx context.Context) error {
	if err := m.migrate.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version 当前版本；尚未迁移时为 0
func (m *DefaultMigrator) Version(ctx context.Context) (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}

// Status 列出所有内嵌迁移及其应用状态
func (m *DefaultMigrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	current, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	files, err := availableMigrations(m.dialect)
	if err != nil {
		return nil, err
	}
	return buildStatus(files, current, dirty), nil
}

// Info 迁移摘要
func (m *DefaultMigrator) Info(ctx context.Context) (*MigrationInfo, error) {
	current, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	files, err := availableMigrations(m.dialect)
	if err != nil {
		return nil, err
	}
	return buildInfo(files, current, dirty), nil
}

// Close 释放连接
func (m *DefaultMigrator) Close() error {
	if m.migrate == nil {
		return nil
	}
	srcErr, dbErr := m.migrate.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		return fmt.Errorf("failed to close migrator: %w", err)
	}
	return nil
}

type migrationFile struct {
	version uint
	name    string
}

// availableMigrations 按版本排序返回内嵌的 up 迁移
func availableMigrations(d dialect) ([]migrationFile, error) {
	entries, err := fs.ReadDir(d.files, d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	seen := make(map[uint]bool)
	var out []migrationFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		// 000001_create_job_history.up.sql
		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		v, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil || seen[uint(v)] {
			continue
		}
		seen[uint(v)] = true
		out = append(out, migrationFile{version: uint(v), name: strings.TrimSuffix(parts[1], ".up.sql")})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func buildStatus(files []migrationFile, current uint, dirty bool) []MigrationStatus {
	out := make([]MigrationStatus, 0, len(files))
	for _, f := range files {
		out = append(out, MigrationStatus{
			Version: f.version,
			Name:    f.name,
			Applied: f.version <= current,
			Dirty:   dirty && f.version == current,
		})
	}
	return out
}

func buildInfo(files []migrationFile, current uint, dirty bool) *MigrationInfo {
	applied := 0
	for _, f := range files {
		if f.version <= current {
			applied++
		}
	}
	return &MigrationInfo{
		CurrentVersion:    current,
		Dirty:             dirty,
		TotalMigrations:   len(files),
		AppliedMigrations: applied,
		PendingMigrations: len(files) - applied,
	}
}

// =============================================================================
// 辅助函数
// =============================================================================

// ParseDatabaseType 解析数据库类型字符串
func ParseDatabaseType(s string) (DatabaseType, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DatabaseTypePostgres, nil
	case "mysql", "mariadb":
		return DatabaseTypeMySQL, nil
	case "sqlite", "sqlite3":
		return DatabaseTypeSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", s)
	}
}

// BuildDatabaseURL 按方言拼接连接串。SQLite 时 database 为文件路径。
func BuildDatabaseURL(dbType DatabaseType, host string, port int, database, username, password, sslMode string) string {
	switch dbType {
	case DatabaseTypePostgres:
		if sslMode == "" {
			sslMode = "require"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			username, password, host, port, database, sslMode)
	case DatabaseTypeMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			username, password, host, port, database)
	case DatabaseTypeSQLite:
		return fmt.Sprintf("file:%s?mode=rwc&_pragma=foreign_keys(1)", database)
	default:
		return ""
	}
}

// GetMigrationsPath 内嵌迁移文件的目录
func GetMigrationsPath(dbType DatabaseType) string {
	return path.Join("migrations", string(dbType))
}
