// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"fmt"
	"log"
	"os"
	"time"

	"orus-risk/internal/config"
	"orus-risk/internal/models"
	"orus-risk/internal/repositories/cache"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance used across the application.
var DB *gorm.DB
var CacheService *cache.CacheService

// DBConfig holds database connection pool configuration
type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

var dbConfig = DBConfig{
	MaxIdleConns:    10,
	MaxOpenConns:    100,
	ConnMaxLifetime: time.Hour,
	ConnMaxIdleTime: time.Minute * 30,
}

// InitDB initializes the database and Redis connections.
// It sets up the connection pool, performs migrations,
// and configures the database with proper settings.
func InitDB() error {
	db, err := OpenPostgres(PostgresDSN())
	if err != nil {
		return err
	}
	DB = db
	log.Println("PostgreSQL connected")

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("migrations applied")

	redisCfg := &cache.RedisConfig{
		Host:         config.GetEnv("REDIS_HOST", "localhost"),
		Port:         config.GetEnv("REDIS_PORT", "6379"),
		Password:     config.GetEnv("REDIS_PASSWORD", ""),
		DB:           config.GetIntEnv("REDIS_DB", 0),
		PoolSize:     config.GetIntEnv("REDIS_POOL_SIZE", 0),
		MinIdleConns: config.GetIntEnv("REDIS_MIN_IDLE_CONNS", 0),
		DialTimeout:  config.GetDurationEnv("REDIS_DIAL_TIMEOUT", 2*time.Second),
		ReadTimeout:  config.GetDurationEnv("REDIS_READ_TIMEOUT", 500*time.Millisecond),
		WriteTimeout: config.GetDurationEnv("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
	}
	CacheService = cache.NewCacheService(cache.NewRedisClient(redisCfg), time.Hour)
	return nil
}

// PostgresDSN builds the DSN from the DB_* variables.
func PostgresDSN() string {
	return "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "orus_risk") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=" + config.GetEnv("DB_SSLMODE", "disable")
}

// OpenPostgres connects and applies the pool settings.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	// Configure GORM logger to ignore "record not found" errors
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn, // Only log warnings and errors
			IgnoreRecordNotFoundError: true,        // Ignore "record not found"
			Colorful:                  !config.IsProduction(),
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dbConfig.ConnMaxIdleTime)
	return db, nil
}

// Migrate creates or updates the engine's tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Transaction{},
		&models.FraudCheck{},
		&models.BlacklistEntry{},
	)
}

// DropAllTables removes the engine's tables. Used by integration tests.
func DropAllTables(db *gorm.DB) error {
	return db.Migrator().DropTable(
		&models.Transaction{},
		&models.FraudCheck{},
		&models.BlacklistEntry{},
	)
}
