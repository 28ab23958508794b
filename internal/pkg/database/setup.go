package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/connectboard/app/models"
	"github.com/ManuelReschke/connectboard/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the shared database handle, nil before SetupDatabase ran.
func GetDB() *gorm.DB {
	return DB
}

// DSN builds the MySQL data source name from env.
func DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

func SetupDatabase() {
	var err error
	gormLogger := logger.Default.LogMode(logger.Warn)
	if env.IsDev() {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{
			Logger:         gormLogger,
			TranslateError: true,
		})
		if err == nil {
			err = AutoMigrate(DB)
		}
		if err == nil {
			return
		}

		log.Errorf("[Database] failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// AutoMigrate creates or updates the tables of all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ClientAccount{},
		&models.OnboardingToken{},
		&models.WebhookEvent{},
		&models.AdminUser{},
	)
}

// AdminSeeder is the admin persistence used for seeding.
type AdminSeeder interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *models.AdminUser) error
}

// SeedAdmin creates the first administrator from ADMIN_EMAIL and ADMIN_PASSWORD
// when no administrator exists yet. It does nothing when either is unset.
func SeedAdmin(ctx context.Context, admins AdminSeeder, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := admins.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	user, err := models.NewAdminUser(email, password)
	if err != nil {
		return errors.New("ADMIN_EMAIL is not a valid email address")
	}
	if err := admins.Create(ctx, user); err != nil {
		return err
	}
	log.Infof("[Database] seeded administrator %s", user.Email)
	return nil
}

// Ping checks the database connection.
func Ping(ctx context.Context) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
