package cart

import (
	"context"
	"database/sql"
	"log"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"shopwindow/internal/database"
	"shopwindow/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	// The schema comes from the embedded goose migrations, the same path
	// the binary takes at startup.
	if err := database.RunMigrations(testDB, zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}
}

func clearTable(t *testing.T) {
	t.Helper()
	if _, err := testDB.Exec(`DELETE FROM cart_items`); err != nil {
		t.Fatalf("could not clear cart_items: %v", err)
	}
}

func TestRepository_InsertAndList(t *testing.T) {
	clearTable(t)
	repo := NewRepository(testDB)
	ctx := context.Background()

	items := []domain.CartItem{
		{ID: 1, Title: "First", Price: 9.99, Thumbnail: "a.png", Quantity: 1},
		{ID: 2, Title: "Second", Price: 15.50, Thumbnail: "b.png", Quantity: 2},
	}
	for _, item := range items {
		if err := repo.Insert(ctx, "s1", item); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	got, err := repo.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("insertion order not preserved: %v", got)
	}
}

func TestRepository_GetNotFound(t *testing.T) {
	clearTable(t)
	repo := NewRepository(testDB)

	_, err := repo.Get(context.Background(), "s1", 404)
	if err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRepository_UpdateQuantity(t *testing.T) {
	clearTable(t)
	repo := NewRepository(testDB)
	ctx := context.Background()

	if err := repo.Insert(ctx, "s1", domain.CartItem{ID: 1, Title: "X", Price: 1, Thumbnail: "x.png", Quantity: 1}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := repo.UpdateQuantity(ctx, "s1", 1, 4); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	item, err := repo.Get(ctx, "s1", 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if item.Quantity != 4 {
		t.Errorf("expected quantity 4, got %d", item.Quantity)
	}

	if err := repo.UpdateQuantity(ctx, "s1", 999, 2); err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound for unknown product, got %v", err)
	}
}

func TestRepository_DeleteAndDeleteAll(t *testing.T) {
	clearTable(t)
	repo := NewRepository(testDB)
	ctx := context.Background()

	for id := 1; id <= 3; id++ {
		if err := repo.Insert(ctx, "s1", domain.CartItem{ID: id, Title: "X", Price: 1, Thumbnail: "x.png", Quantity: 1}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	if err := repo.Delete(ctx, "s1", 2); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "s1", 2); err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound on second delete, got %v", err)
	}

	if err := repo.DeleteAll(ctx, "s1"); err != nil {
		t.Fatalf("delete all failed: %v", err)
	}
	got, err := repo.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty cart, got %d items", len(got))
	}
}

func TestRepository_SessionsAreIsolated(t *testing.T) {
	clearTable(t)
	repo := NewRepository(testDB)
	ctx := context.Background()

	if err := repo.Insert(ctx, "s1", domain.CartItem{ID: 1, Title: "X", Price: 1, Thumbnail: "x.png", Quantity: 1}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := repo.List(ctx, "s2")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("sessions leaked: %v", got)
	}
}
