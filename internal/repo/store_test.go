package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-servicereq/internal/core/database"
	"go-servicereq/internal/domain"
)

// setupStore connects to TEST_DATABASE_DSN (postgres) inside a throwaway schema.
func setupStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_servicereq_%d", time.Now().UnixNano()%1000000)

	setup, err := database.NewGorm(database.Opts{Driver: "postgres", DSN: dsn, LogLevel: "silent", MaxOpenConns: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := setup.Exec("CREATE SCHEMA IF NOT EXISTS " + schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	db, err := database.NewGorm(database.Opts{Driver: "postgres", DSN: dsn + " search_path=" + schema, LogLevel: "silent", MaxOpenConns: 4}, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			_ = sqlDB.Close()
		}
		setup.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE")
		if sqlDB, _ := setup.DB(); sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db), db
}

func TestStoreRequestLifecycle(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	if err := s.Users().Create(ctx, &domain.UserData{UserID: 7, Name: "Ann", Email: "ann@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := s.Users().Create(ctx, &domain.UserData{UserID: 7, Name: "Ann again"})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("duplicate user err = %v", err)
	}

	req := &domain.ServiceRequest{ProductID: 3, UserID: 7, RequestDate: time.Now(), Problem: "noisy fan", Status: domain.StatusPending}
	if err := s.Requests().Create(ctx, req); err != nil || req.ID == 0 {
		t.Fatalf("create request: id=%d err=%v", req.ID, err)
	}
	byPair, err := s.Requests().ListByUserAndProduct(ctx, 7, 3)
	if err != nil || len(byPair) != 1 {
		t.Fatalf("ListByUserAndProduct = %v, %v", byPair, err)
	}

	rep := &domain.ServiceReport{ServiceReqID: req.ID, ServiceType: "repair"}
	if err := s.Reports().Create(ctx, rep); err != nil {
		t.Fatalf("create report: %v", err)
	}
	if err := s.Reports().Create(ctx, &domain.ServiceReport{ServiceReqID: req.ID}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("second report err = %v", err)
	}
	got, err := s.Reports().FindByServiceReqID(ctx, req.ID)
	if err != nil || got == nil || got.ID != rep.ID {
		t.Fatalf("FindByServiceReqID = %v, %v", got, err)
	}

	if err := s.Requests().Delete(ctx, req.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gone, err := s.Requests().FindByID(ctx, req.ID); err != nil || gone != nil {
		t.Fatalf("FindByID after delete = %v, %v", gone, err)
	}
}

func TestStoreTxRollsBack(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Tx(ctx, func(tx domain.Store) error {
		if err := tx.Users().Create(ctx, &domain.UserData{UserID: 9}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx err = %v", err)
	}
	if u, _ := s.Users().FindByID(ctx, 9); u != nil {
		t.Fatal("row survived rollback")
	}
}
