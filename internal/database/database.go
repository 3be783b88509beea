package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"battsim/internal/config"
	"battsim/internal/models"
)

// Database wraps the GORM database connection
type Database struct {
	*gorm.DB
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	logLevel := logger.Silent
	if cfg.SSLMode == "disable" { // Development mode indicator
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Database{DB: db}, nil
}

// AutoMigrate runs automatic migration for all models
func (db *Database) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.SimulationRun{},
		&models.SimulationTemplate{},
		&models.SimulationShare{},
		&models.PasswordResetCode{},
		&models.APIUsage{},
	)
}

// Close closes the database connection
func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Repositories bundles all entity repositories
type Repositories struct {
	Users     *UserRepository
	Profiles  *ProfileRepository
	Runs      *SimulationRunRepository
	Templates *TemplateRepository
	Shares    *ShareRepository
	OTPs      *OTPRepository
	Usage     *UsageRepository
}

// NewRepositories creates repositories bound to the given database
func NewRepositories(db *Database) *Repositories {
	return &Repositories{
		Users:     &UserRepository{db: db.DB},
		Profiles:  &ProfileRepository{db: db.DB},
		Runs:      &SimulationRunRepository{db: db.DB},
		Templates: &TemplateRepository{db: db.DB},
		Shares:    &ShareRepository{db: db.DB},
		OTPs:      &OTPRepository{db: db.DB},
		Usage:     &UsageRepository{db: db.DB},
	}
}
