// Package repotest opens throwaway sqlite-backed repositories for tests.
package repotest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
)

// Open returns a migrated in-memory database private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// New returns a migrated repository over a fresh database.
func New(t testing.TB) *repository.Repository {
	t.Helper()
	repo := repository.NewRepository(Open(t), zap.NewNop())
	if err := repo.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return repo
}

// SeedUser inserts a user with the given balances.
func SeedUser(t testing.TB, repo *repository.Repository, id string, point, score int) *repository.User {
	t.Helper()
	user, err := repo.EnsureUser(context.Background(), &repository.User{ID: id, Name: id, Email: id + "@example.com"})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if point != 0 || score != 0 {
		user, err = repo.IncrementBalance(context.Background(), id, point, score)
		if err != nil {
			t.Fatalf("failed to seed balance: %v", err)
		}
	}
	return user
}
