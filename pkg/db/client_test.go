package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"gorm.io/gorm"
)

type scratchRow struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func newSQLiteClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver:     config.DBDriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "storefront.db"),
	}
	client, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&scratchRow{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return client
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&scratchRow{Key: "auth_token", Value: "t"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&scratchRow{Key: "user_data", Value: "{}"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}

	var count int64
	if err := client.DB().Model(&scratchRow{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	client := newSQLiteClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewRejectsMissingSettings(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: config.DBDriverPostgres}, nil); err == nil {
		t.Fatal("expected missing dsn to fail")
	}
	if _, err := New(context.Background(), config.DBConfig{Driver: "oracle"}, nil); err == nil {
		t.Fatal("expected unknown driver to fail")
	}
}

func TestDialect(t *testing.T) {
	if got := Dialect(config.DBConfig{Driver: config.DBDriverSQLite}); got != "sqlite3" {
		t.Fatalf("expected sqlite3, got %s", got)
	}
	if got := Dialect(config.DBConfig{}); got != "postgres" {
		t.Fatalf("expected postgres default, got %s", got)
	}
}
