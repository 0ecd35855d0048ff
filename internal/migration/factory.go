package migration

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/generable/config"
)

// NewMigratorFromConfig 从数据库配置创建迁移器
func NewMigratorFromConfig(cfg config.DatabaseConfig, logger *zap.Logger) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	var url string
	switch dbType {
	case DatabaseTypePostgres:
		url = BuildDatabaseURL(dbType, cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Password, cfg.SSLMode)
	case DatabaseTypeMySQL:
		url = BuildDatabaseURL(dbType, cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Password, "")
	case DatabaseTypeSQLite:
		// Name 即 SQLite 文件路径
		url = BuildDatabaseURL(dbType, "", 0, cfg.Name, "", "", "")
	}

	return NewMigrator(&Config{
		DatabaseType: dbType,
		DatabaseURL:  url,
		Logger:       logger,
	})
}

// NewMigratorFromURL 从方言与连接串创建迁移器
func NewMigratorFromURL(dbType, url string, logger *zap.Logger) (*DefaultMigrator, error) {
	t, err := ParseDatabaseType(dbType)
	if err != nil {
		return nil, err
	}
	return NewMigrator(&Config{DatabaseType: t, DatabaseURL: url, Logger: logger})
}
