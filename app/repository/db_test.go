package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/connectboard/app/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ClientAccount{},
		&models.OnboardingToken{},
		&models.WebhookEvent{},
		&models.AdminUser{},
	))
	return db
}

func createClient(t *testing.T, repo ClientRepository, name string) *models.ClientAccount {
	t.Helper()
	c := &models.ClientAccount{Name: name, Email: strings.ToLower(name) + "@x.com"}
	_, err := c.IssueAPIKey()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}
