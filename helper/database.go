package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the postgres connection settings.
type DatabaseConfiguration struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
	Schema   string `mapstructure:"schema" yaml:"schema"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// NewDatabaseConfiguration reads the connection settings from the
// DATABASE_* environment variables.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{
		Host:     os.Getenv("DATABASE_HOST"),
		Port:     os.Getenv("DATABASE_PORT"),
		Database: os.Getenv("DATABASE_NAME"),
		Username: os.Getenv("DATABASE_USERNAME"),
		Password: os.Getenv("DATABASE_PASSWORD"),
		Schema:   os.Getenv("DATABASE_SCHEMA"),
		SSLMode:  os.Getenv("DATABASE_SSL_MODE"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and fills defaults for optional ones.
func (c *DatabaseConfiguration) Validate() error {
	if c.Host == "" || c.Port == "" || c.Database == "" || c.Username == "" {
		return NewError("database configuration", fmt.Errorf("host, port, database and username are required"))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return NewError("database configuration", fmt.Errorf("invalid port %q", c.Port))
	}
	if c.Schema == "" {
		c.Schema = "public"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	return nil
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfiguration) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// Database bundles the connection pool with the logger used by the handlers.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings the connection. It panics when the database
// is unreachable after a few attempts.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := connect(config, 5, 2*time.Second)
	if err != nil {
		log.Panicf("error connecting to database %s: %v", name, err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host), slog.String("database", config.Database))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}

// NewTestDatabase connects with a warn level logger to keep test output short.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := NewLogger(os.Stdout, slog.LevelWarn)
	return NewDatabase("test", config, logger)
}

// CheckHealth pings the database.
func (d *Database) CheckHealth(ctx context.Context) error {
	if d == nil || d.Instance == nil {
		return NewError("check health", fmt.Errorf("database connection is nil"))
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.Instance.PingContext(ctx); err != nil {
		return NewError("ping database", err)
	}
	return nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

func connect(config *DatabaseConfiguration, attempts int, wait time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, NewError("open database", err)
	}

	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}
		time.Sleep(wait)
	}

	db.Close()
	return nil, NewError("ping database", err)
}

// CheckConnection connects once without retrying and returns the server version.
func CheckConnection(ctx context.Context, config *DatabaseConfiguration) (string, error) {
	db, err := connect(config, 1, 0)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var version string
	if err := db.QueryRowContext(ctx, `SHOW server_version`).Scan(&version); err != nil {
		return "", NewError("query server version", err)
	}
	return version, nil
}
