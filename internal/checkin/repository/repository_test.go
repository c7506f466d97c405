package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"device-checkin/internal/checkin/domain"
	"device-checkin/internal/db"
	"device-checkin/internal/db/migrate"
)

func newSQLRepo(t *testing.T) *SQLRepository {
	t.Helper()
	dsn := db.SQLiteScheme + filepath.Join(t.TempDir(), "identity.db")
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewSQLRepository(conn)
}

func TestRepositories(t *testing.T) {
	impls := map[string]func(t *testing.T) Repository{
		"memory": func(t *testing.T) Repository { return NewMemoryRepository(domain.DeviceIdentity{}) },
		"sqlite": func(t *testing.T) Repository { return newSQLRepo(t) },
	}
	for name, newRepo := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			got, err := repo.Load(ctx)
			if err != nil {
				t.Fatalf("Load empty: %v", err)
			}
			if got != (domain.DeviceIdentity{}) {
				t.Errorf("Load empty = %+v, want zero identity", got)
			}

			want := domain.DeviceIdentity{DeviceID: 12345, SecurityToken: 1<<63 + 999, Digest: "abc", LastCheckinMs: 1700000000000}
			if err := repo.Save(ctx, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err = repo.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != want {
				t.Errorf("Load = %+v, want %+v", got, want)
			}

			next := domain.DeviceIdentity{DeviceID: 777, SecurityToken: 888, Digest: "def", LastCheckinMs: 1700000001000}
			if err := repo.Save(ctx, next); err != nil {
				t.Fatalf("Save replace: %v", err)
			}
			got, _ = repo.Load(ctx)
			if got != next {
				t.Errorf("Load after replace = %+v, want %+v", got, next)
			}

			err = repo.Save(ctx, domain.DeviceIdentity{SecurityToken: 1})
			if !errors.Is(err, domain.ErrInvalidIdentity) {
				t.Errorf("Save token without device id err = %v, want ErrInvalidIdentity", err)
			}
			got, _ = repo.Load(ctx)
			if got != next {
				t.Errorf("invalid Save must not change state; got %+v", got)
			}
		})
	}
}
