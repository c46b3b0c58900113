package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/ether/etherdoc/lib"
	"github.com/ether/etherdoc/lib/db"
	hooks2 "github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/session"
	"github.com/ether/etherdoc/lib/settings"
	"github.com/ether/etherdoc/lib/ws"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var (
	globalPostgresContainer *TestContainerConfiguration
	postgresErr             error
	postgresOnce            sync.Once

	// Tests share one Postgres database and run one at a time against it.
	postgresTestLock sync.Mutex
)

type TestDataStore struct {
	DS            db.DataStore
	Logger        *zap.SugaredLogger
	Hooks         *hooks2.Hook
	Settings      *settings.Settings
	Manager       *session.Manager
	Handler       *ws.MessageHandler
	MockWebSocket *ws.MockWebSocketConn
	Validator     *validator.Validate
	Hub           *ws.Hub
	App           *fiber.App
}

func (t *TestDataStore) ToInitStore() *lib.InitStore {
	return &lib.InitStore{
		C:                 t.App,
		RetrievedSettings: t.Settings,
		Store:             t.DS,
		Manager:           t.Manager,
		Hub:               t.Hub,
		Handler:           t.Handler,
		Validator:         t.Validator,
		Logger:            t.Logger,
		Hooks:             t.Hooks,
	}
}

type TestRunConfig struct {
	Name string
	Test func(t *testing.T, tsStore TestDataStore)
}

type TestDBHandler struct {
	t     *testing.T
	tests []TestRunConfig
}

const (
	DbName = "test_db"
	DbUser = "test_user"
	DbPass = "test_password"
)

type TestContainerConfiguration struct {
	Container testcontainers.Container
	Host      string
	Port      string
	Username  string
	Password  string
	Database  string
}

func NewTestDBHandler(t *testing.T) *TestDBHandler {
	t.Helper()
	return &TestDBHandler{
		t: t,
	}
}

// TestSettings are the defaults of the settings registry with smaller limits.
func TestSettings() *settings.Settings {
	return &settings.Settings{
		IP:            "127.0.0.1",
		Port:          "9001",
		LogLevel:      "INFO",
		EnableMetrics: true,
		DBType:        settings.MEMORY,
		Editor:        settings.EditorSettings{IndentStep: 40, IndentUnit: "px"},
		History:       settings.HistorySettings{CoalesceWindowMs: 100, MaxSteps: 200},
		Import:        settings.ImportSettings{SanitizeHtml: true, MaxFileSize: 1024 * 1024},
		Socket:        settings.SocketSettings{MaxMessageSize: 50000},
		CommitRateLimiting: settings.CommitRateLimiting{
			Duration: 1,
			Points:   100,
		},
	}
}

func PreparePostgresDB() (*TestContainerConfiguration, error) {
	var env = map[string]string{
		"POSTGRES_PASSWORD": DbPass,
		"POSTGRES_USER":     DbUser,
		"POSTGRES_DB":       DbName,
	}
	ctx := context.Background()

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env:          env,
			WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
				return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", DbUser, DbPass, host, port.Port(), DbName)
			}).WithStartupTimeout(time.Second * 60).WithQuery("SELECT 10"),
		},
		Started: true,
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		return nil, err
	}

	p, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		return nil, err
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		return nil, err
	}

	return &TestContainerConfiguration{
		Container: postgresContainer,
		Host:      host,
		Port:      p.Port(),
		Username:  DbUser,
		Password:  DbPass,
		Database:  DbName,
	}, nil
}

// cleanupPostgresTables truncates all tables except the migration table
func cleanupPostgresTables() error {
	if globalPostgresContainer == nil {
		return nil
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		globalPostgresContainer.Username, globalPostgresContainer.Password,
		globalPostgresContainer.Host, globalPostgresContainer.Port, globalPostgresContainer.Database)
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	rows, err := conn.Query("SELECT tablename FROM pg_tables WHERE schemaname = 'public'")
	if err != nil {
		return err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		if t == "schema_migrations" {
			continue
		}
		quoted := `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
		tables = append(tables, quoted)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(tables) == 0 {
		return nil
	}

	_, err = conn.Exec("TRUNCATE TABLE " + strings.Join(tables, ",") + " CASCADE")
	return err
}

func (test *TestDBHandler) AddTests(testConfs ...TestRunConfig) {
	test.tests = append(test.tests, testConfs...)
}

func (test *TestDBHandler) StartTestDBHandler() {
	datastores := map[string]func(t *testing.T) db.DataStore{
		"Memory": func(t *testing.T) db.DataStore {
			return db.NewMemoryDataStore()
		},
		"SQLite": func(t *testing.T) db.DataStore {
			sqliteDB, err := db.NewSQLiteDB(":memory")
			if err != nil {
				t.Fatalf("Failed to create SQLite DataStore: %v", err)
			}
			return sqliteDB
		},
		"Postgres": func(t *testing.T) db.DataStore {
			return test.InitPostgres(t)
		},
	}

	for dsName, newDS := range datastores {
		test.t.Run(dsName, func(t *testing.T) {
			if dsName == "Postgres" {
				if testing.Short() {
					t.Skip("skipping Postgres in short mode")
				}
				testcontainers.SkipIfProviderIsNotHealthy(t)
			}
			for _, testConf := range test.tests {
				test.TestRun(t, testConf, newDS, dsName)
			}
		})
	}
}

func (test *TestDBHandler) InitPostgres(t *testing.T) *db.PostgresDB {
	postgresOnce.Do(func() {
		globalPostgresContainer, postgresErr = PreparePostgresDB()
	})
	if postgresErr != nil {
		t.Fatalf("Failed to prepare Postgres container: %v", postgresErr)
	}
	port, err := strconv.Atoi(globalPostgresContainer.Port)
	if err != nil {
		t.Fatal(err)
	}
	postgresDB, err := db.NewPostgresDB(db.PostgresOptions{
		Username: globalPostgresContainer.Username,
		Password: globalPostgresContainer.Password,
		Database: globalPostgresContainer.Database,
		Host:     globalPostgresContainer.Host,
		Port:     port,
	})
	if err != nil {
		t.Fatalf("Failed to connect to Postgres: %v", err)
	}
	return postgresDB
}

func (test *TestDBHandler) TestRun(
	t *testing.T,
	testRun TestRunConfig,
	newDS func(t *testing.T) db.DataStore,
	dsName string,
) {
	t.Run(testRun.Name, func(t *testing.T) {
		if dsName == "Postgres" {
			postgresTestLock.Lock()
			defer postgresTestLock.Unlock()
		}

		ds := newDS(t)

		if dsName == "Postgres" {
			if err := cleanupPostgresTables(); err != nil {
				t.Fatalf("Postgres cleanup before test failed: %v", err)
			}
		}

		loggerPart := zap.NewNop().Sugar()
		hooks := hooks2.NewHook()
		retrievedSettings := TestSettings()
		hub := ws.NewHub(loggerPart)
		go hub.Run()
		manager := session.NewManager(ds, hooks, retrievedSettings, loggerPart)
		broadcaster := ws.NewBroadcaster(hub, hooks, loggerPart)
		validatorEvaluator := validator.New(validator.WithRequiredStructEnabled())
		handler := ws.NewMessageHandler(manager, hub, validatorEvaluator, loggerPart)

		testRun.Test(t, TestDataStore{
			DS:            ds,
			Logger:        loggerPart,
			Hooks:         hooks,
			Settings:      retrievedSettings,
			Manager:       manager,
			Handler:       handler,
			MockWebSocket: ws.NewMockWebSocketConn(),
			Validator:     validatorEvaluator,
			Hub:           hub,
			App:           fiber.New(),
		})

		broadcaster.Close()
		hub.Stop()
		manager.Close()
		if err := ds.Close(); err != nil {
			t.Errorf("Failed to close DataStore: %v", err)
		}
	})
}
