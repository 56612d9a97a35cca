package session

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/desertthunder/soundcheck/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func setupStoreMock(t *testing.T) (*SQLiteTokenStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	return NewSQLiteTokenStore(db), mock, func() { db.Close() }
}

func newTestManager(t *testing.T, store TokenStore, nav shared.Navigator) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), store, Options{
		LoginURL:  "http://127.0.0.1:8888/login",
		Navigator: nav,
		Logger:    shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

func TestSQLiteTokenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty Store", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewSQLiteTokenStore(db).Get(ctx)
		if !errors.Is(err, shared.ErrNoToken) {
			t.Errorf("expected ErrNoToken, got %v", err)
		}
	})

	t.Run("Set Get Replace Clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		store := NewSQLiteTokenStore(db)
		if err := store.Set(ctx, "abc123"); err != nil {
			t.Fatalf("failed to set token: %v", err)
		}

		token, err := store.Get(ctx)
		if err != nil || token != "abc123" {
			t.Fatalf("expected abc123, got %q (%v)", token, err)
		}

		if err := store.Set(ctx, "def456"); err != nil {
			t.Fatalf("failed to replace token: %v", err)
		}
		token, _ = store.Get(ctx)
		if token != "def456" {
			t.Errorf("expected def456, got %q", token)
		}

		var rows int
		if err := db.QueryRow(`SELECT COUNT(*) FROM settings WHERE key = ?`, TokenKey).Scan(&rows); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if rows != 1 {
			t.Errorf("expected a single settings row, got %d", rows)
		}

		if err := store.Clear(ctx); err != nil {
			t.Fatalf("failed to clear token: %v", err)
		}
		if _, err := store.Get(ctx); !errors.Is(err, shared.ErrNoToken) {
			t.Errorf("expected ErrNoToken after clear, got %v", err)
		}
	})

	t.Run("Clear Empty Store", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := NewSQLiteTokenStore(db).Clear(ctx); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Empty Value Means No Token", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := db.Exec(`INSERT INTO settings (key, value) VALUES (?, '')`, TokenKey); err != nil {
			t.Fatalf("failed to seed row: %v", err)
		}
		if _, err := NewSQLiteTokenStore(db).Get(ctx); !errors.Is(err, shared.ErrNoToken) {
			t.Errorf("expected ErrNoToken, got %v", err)
		}
	})

	t.Run("Query Error", func(t *testing.T) {
		store, mock, cleanup := setupStoreMock(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT value FROM settings`).
			WithArgs(TokenKey).
			WillReturnError(errors.New("disk I/O error"))

		_, err := store.Get(ctx)
		if err == nil || errors.Is(err, shared.ErrNoToken) {
			t.Errorf("expected query error, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("Set Error", func(t *testing.T) {
		store, mock, cleanup := setupStoreMock(t)
		defer cleanup()

		mock.ExpectExec(`INSERT INTO settings`).
			WithArgs(TokenKey, "abc123", sqlmock.AnyArg()).
			WillReturnError(errors.New("database is locked"))

		if err := store.Set(ctx, "abc123"); err == nil {
			t.Error("expected error")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("Clear Error", func(t *testing.T) {
		store, mock, cleanup := setupStoreMock(t)
		defer cleanup()

		mock.ExpectExec(`DELETE FROM settings`).
			WithArgs(TokenKey).
			WillReturnError(errors.New("database is locked"))

		if err := store.Clear(ctx); err == nil {
			t.Error("expected error")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	if _, err := store.Get(ctx); !errors.Is(err, shared.ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
	store.Set(ctx, "abc123")
	if token, _ := store.Get(ctx); token != "abc123" {
		t.Errorf("expected abc123, got %q", token)
	}
	store.Clear(ctx)
	if _, err := store.Get(ctx); !errors.Is(err, shared.ErrNoToken) {
		t.Errorf("expected ErrNoToken after clear, got %v", err)
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("NewManager", func(t *testing.T) {
		t.Run("Empty Store", func(t *testing.T) {
			m := newTestManager(t, NewMemoryTokenStore(), nil)

			snap := m.Snapshot()
			if snap.State != Unauthenticated || snap.Token != "" || snap.Generation != 0 {
				t.Errorf("unexpected snapshot %+v", snap)
			}
		})

		t.Run("Restores Persisted Token", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			store := NewSQLiteTokenStore(db)
			first := newTestManager(t, store, nil)
			if err := first.IngestCallback(ctx, "abc123"); err != nil {
				t.Fatalf("failed to ingest token: %v", err)
			}

			second := newTestManager(t, store, nil)
			if second.State() != Authenticated || second.Token() != "abc123" {
				t.Errorf("expected restored session, got %+v", second.Snapshot())
			}
		})

		t.Run("Store Error", func(t *testing.T) {
			store, mock, cleanup := setupStoreMock(t)
			defer cleanup()

			mock.ExpectQuery(`SELECT value FROM settings`).WillReturnError(errors.New("corrupt"))

			_, err := NewManager(ctx, store, Options{Logger: shared.NewLogger(io.Discard)})
			if err == nil {
				t.Error("expected error")
			}
		})
	})

	t.Run("IngestCallback", func(t *testing.T) {
		t.Run("Non-Empty Token Authenticates", func(t *testing.T) {
			store := NewMemoryTokenStore()
			m := newTestManager(t, store, nil)

			if err := m.IngestCallback(ctx, "abc123"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			snap := m.Snapshot()
			if snap.State != Authenticated || snap.Token != "abc123" {
				t.Errorf("unexpected snapshot %+v", snap)
			}
			if snap.Generation != 1 {
				t.Errorf("expected generation 1, got %d", snap.Generation)
			}
			if stored, _ := store.Get(ctx); stored != "abc123" {
				t.Errorf("expected stored token abc123, got %q", stored)
			}
		})

		t.Run("Empty Token Is Rejected And Idempotent", func(t *testing.T) {
			store := NewMemoryTokenStore()
			m := newTestManager(t, store, nil)

			for range 2 {
				err := m.IngestCallback(ctx, "")
				if !errors.Is(err, shared.ErrAuthFailed) {
					t.Errorf("expected ErrAuthFailed, got %v", err)
				}
			}

			if m.State() != Unauthenticated || m.Generation() != 0 {
				t.Errorf("expected untouched session, got %+v", m.Snapshot())
			}
			if _, err := store.Get(ctx); !errors.Is(err, shared.ErrNoToken) {
				t.Errorf("expected empty store, got %v", err)
			}
		})

		t.Run("Empty Token Keeps Existing Session", func(t *testing.T) {
			m := newTestManager(t, NewMemoryTokenStore(), nil)
			m.IngestCallback(ctx, "abc123")

			m.IngestCallback(ctx, "")
			if m.Token() != "abc123" || m.Generation() != 1 {
				t.Errorf("expected previous session, got %+v", m.Snapshot())
			}
		})

		t.Run("Replaces Token", func(t *testing.T) {
			m := newTestManager(t, NewMemoryTokenStore(), nil)
			m.IngestCallback(ctx, "abc123")
			m.IngestCallback(ctx, "def456")

			if m.Token() != "def456" || m.Generation() != 2 {
				t.Errorf("unexpected snapshot %+v", m.Snapshot())
			}
		})

		t.Run("Store Failure", func(t *testing.T) {
			store, mock, cleanup := setupStoreMock(t)
			defer cleanup()

			mock.ExpectQuery(`SELECT value FROM settings`).WillReturnRows(sqlmock.NewRows([]string{"value"}))
			mock.ExpectExec(`INSERT INTO settings`).WillReturnError(errors.New("read-only database"))

			m := newTestManager(t, store, nil)
			err := m.IngestCallback(ctx, "abc123")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
			if m.State() != Unauthenticated {
				t.Error("expected state to stay unauthenticated")
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("Clears Token And Store", func(t *testing.T) {
			store := NewMemoryTokenStore()
			m := newTestManager(t, store, nil)
			m.IngestCallback(ctx, "abc123")

			if err := m.Logout(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			snap := m.Snapshot()
			if snap.State != Unauthenticated || snap.Token != "" || snap.Generation != 2 {
				t.Errorf("unexpected snapshot %+v", snap)
			}
			if _, err := store.Get(ctx); !errors.Is(err, shared.ErrNoToken) {
				t.Errorf("expected empty store, got %v", err)
			}
		})

		t.Run("Logout While Unauthenticated", func(t *testing.T) {
			m := newTestManager(t, NewMemoryTokenStore(), nil)
			if err := m.Logout(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if m.State() != Unauthenticated || m.Generation() != 1 {
				t.Errorf("unexpected snapshot %+v", m.Snapshot())
			}
		})

		t.Run("Store Failure Still Clears Memory", func(t *testing.T) {
			store, mock, cleanup := setupStoreMock(t)
			defer cleanup()

			mock.ExpectQuery(`SELECT value FROM settings`).
				WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("abc123"))
			mock.ExpectExec(`DELETE FROM settings`).WillReturnError(errors.New("database is locked"))

			m := newTestManager(t, store, nil)
			if m.Token() != "abc123" {
				t.Fatalf("expected restored token, got %q", m.Token())
			}

			if err := m.Logout(ctx); err == nil {
				t.Error("expected store error")
			}
			if m.State() != Unauthenticated || m.Token() != "" {
				t.Errorf("expected cleared session, got %+v", m.Snapshot())
			}
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("Navigates To Login URL", func(t *testing.T) {
			var visited string
			m := newTestManager(t, NewMemoryTokenStore(), func(url string) error {
				visited = url
				return nil
			})

			if err := m.Login(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if visited != "http://127.0.0.1:8888/login" {
				t.Errorf("unexpected navigation target %q", visited)
			}
			if m.State() != Unauthenticated || m.Generation() != 0 {
				t.Error("expected login not to change session state")
			}
		})

		t.Run("Navigator Failure", func(t *testing.T) {
			m := newTestManager(t, NewMemoryTokenStore(), func(string) error {
				return errors.New("no browser")
			})
			if err := m.Login(ctx); err == nil {
				t.Error("expected error")
			}
		})

		t.Run("Missing Login URL", func(t *testing.T) {
			m, _ := NewManager(ctx, NewMemoryTokenStore(), Options{Logger: shared.NewLogger(io.Discard)})
			if err := m.Login(ctx); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})
	})

	t.Run("Subscribe", func(t *testing.T) {
		m := newTestManager(t, NewMemoryTokenStore(), nil)

		var got []Snapshot
		unsubscribe := m.Subscribe(func(s Snapshot) { got = append(got, s) })

		m.IngestCallback(ctx, "abc123")
		m.IngestCallback(ctx, "")
		m.Logout(ctx)
		unsubscribe()
		m.IngestCallback(ctx, "def456")

		if len(got) != 2 {
			t.Fatalf("expected 2 notifications, got %d", len(got))
		}
		if got[0].Token != "abc123" || got[1].State != Unauthenticated {
			t.Errorf("unexpected notifications %+v", got)
		}
	})

	t.Run("IsCurrent", func(t *testing.T) {
		m := newTestManager(t, NewMemoryTokenStore(), nil)
		m.IngestCallback(ctx, "abc123")
		gen := m.Generation()

		if !m.IsCurrent(gen) {
			t.Error("expected generation to be current")
		}
		m.Logout(ctx)
		if m.IsCurrent(gen) {
			t.Error("expected generation to be stale after logout")
		}
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		m := newTestManager(t, NewMemoryTokenStore(), nil)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if i%2 == 0 {
					m.IngestCallback(ctx, "abc123")
				} else {
					m.Logout(ctx)
				}
				snap := m.Snapshot()
				if snap.Authenticated() != (snap.Token != "") {
					t.Errorf("inconsistent snapshot %+v", snap)
				}
			}()
		}
		wg.Wait()

		if m.Generation() != 20 {
			t.Errorf("expected generation 20, got %d", m.Generation())
		}
	})
}
