package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/glosspoint/glosspoint/config"
)

func getDatabase(cfg config.DBConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name, time.Local.String())

	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		zap.S().Panicf("connect postgres failed: %s", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		zap.S().Panicf("acquire sql.DB failed: %s", err)
	}
	maxConn := cfg.MaxConn
	if maxConn == 0 {
		maxConn = 100
	}
	idleConn := cfg.IdleConn
	if idleConn == 0 {
		idleConn = 10
	}
	sqlDB.SetMaxOpenConns(maxConn)
	sqlDB.SetMaxIdleConns(idleConn)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db
}
