package ioc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB() *gorm.DB {
	type Config struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
		Debug  bool   `mapstructure:"debug"`
	}

	cfg := Config{Driver: "sqlite", DSN: "./data/pquant.db"}
	if err := viper.UnmarshalKey("db", &cfg); err != nil {
		panic(err)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		if !strings.HasPrefix(cfg.DSN, ":memory:") && !strings.HasPrefix(cfg.DSN, "file:") {
			if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
				panic(err)
			}
		}
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		panic(fmt.Errorf("unsupported db driver %q", cfg.Driver))
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		panic(err)
	}
	if err = repo.InitTables(db); err != nil {
		panic(err)
	}
	return db
}
