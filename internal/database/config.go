package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"remindmail/internal/models"
	"remindmail/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// pendingPollQuery identifies the sweep's once-a-minute poll in the SQL log
const pendingPollQuery = `SELECT * FROM "reminders" WHERE sent_reminder =`

// InitDB opens the PostgreSQL connection, configures the pool and migrates the schema
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := openWithRetry(postgres.Open(dsn), newGormConfig(), 5, 5*time.Second)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database connection established and migrations completed")
	return db, nil
}

// Migrate creates or updates the reminder tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Reminder{},
		&models.SweepRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func newGormConfig() *gorm.Config {
	baseLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags|log.Lshortfile),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return &gorm.Config{
		Logger: utils.NewQuietGormLogger(baseLogger, pendingPollQuery),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	}
}

func openWithRetry(dialector gorm.Dialector, cfg *gorm.Config, maxRetries int, retryDelay time.Duration) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector, cfg)
		if err == nil {
			return db, nil
		}
		log.Printf("Database connection attempt %d failed: %v", i+1, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}
