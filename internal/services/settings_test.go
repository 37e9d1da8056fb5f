package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/wlanmon/internal/services"
	"github.com/HerbHall/wlanmon/internal/testutil"
)

func newSettingsRepo(t *testing.T) services.SettingsRepository {
	t.Helper()
	store := testutil.NewStore(t)
	repo, err := services.NewSQLSettingsRepository(context.Background(), store)
	if err != nil {
		t.Fatalf("NewSQLSettingsRepository: %v", err)
	}
	return repo
}

func TestSQLSettingsRepository_SetAndGet(t *testing.T) {
	repo := newSettingsRepo(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "wlan_sector", "logistics"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s, err := repo.Get(ctx, "wlan_sector")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Key != "wlan_sector" {
		t.Errorf("Key = %q, want %q", s.Key, "wlan_sector")
	}
	if s.Value != "logistics" {
		t.Errorf("Value = %q, want %q", s.Value, "logistics")
	}
	if s.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero")
	}
}

func TestSQLSettingsRepository_SetOverwrite(t *testing.T) {
	repo := newSettingsRepo(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "wlan_sector", "education"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "wlan_sector", "government"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	s, err := repo.Get(ctx, "wlan_sector")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Value != "government" {
		t.Errorf("Value = %q, want %q", s.Value, "government")
	}
}

func TestSQLSettingsRepository_GetNotFound(t *testing.T) {
	repo := newSettingsRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "nonexistent")
	if !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Get nonexistent = %v, want ErrNotFound", err)
	}
}
