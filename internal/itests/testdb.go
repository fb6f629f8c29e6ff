package itests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"YcrudAPI/internal"
	"YcrudAPI/internal/db"
)

// DeriveTestDSN points the DSN at a "ycrud_test" database and derives an admin DSN for "postgres".
func DeriveTestDSN(baseDSN string) (testDSN, adminDSN, testDBName string, err error) {
	u, e := url.Parse(baseDSN)
	if e != nil {
		return "", "", "", fmt.Errorf("parse DSN: %w", e)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", "", errors.New("only URL DSN supported: postgres://...")
	}
	// tests never touch remote hosts
	if host := u.Hostname(); host != "localhost" && host != "127.0.0.1" {
		return "", "", "", fmt.Errorf("refuse non-local host for tests: %s", host)
	}

	testDBName = "ycrud_test"
	u.Path = "/" + testDBName
	testDSN = u.String()

	u.Path = "/postgres"
	adminDSN = u.String()
	return testDSN, adminDSN, testDBName, nil
}

func CreateTestDatabase(adminDSN, dbName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := sql.Open(db.DriverPostgres, adminDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	var exists bool
	if err := conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname=$1)`, dbName,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = conn.ExecContext(ctx, `CREATE DATABASE `+pqIdent(dbName))
	return err
}

func DropTestDatabase(adminDSN, dbName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := sql.Open(db.DriverPostgres, adminDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, _ = conn.ExecContext(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, dbName)

	_, err = conn.ExecContext(ctx, `DROP DATABASE IF EXISTS `+pqIdent(dbName))
	return err
}

func pqIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// SetupTestDB creates the test database, migrates it and opens a pool.
func SetupTestDB(baseDSN string) (conn *sql.DB, teardown func() error, err error) {
	testDSN, adminDSN, testDB, err := DeriveTestDSN(baseDSN)
	if err != nil {
		return nil, nil, err
	}
	if os.Getenv("APP_ENV") == "production" {
		return nil, nil, errors.New("APP_ENV=production, aborting tests")
	}

	if err := CreateTestDatabase(adminDSN, testDB); err != nil {
		return nil, nil, fmt.Errorf("create DB %q: %w (dsn %s)", testDB, err, redactDSN(baseDSN))
	}
	log.Printf("test DB %q created", testDB)

	root, err := internal.FindRepoRoot()
	if err != nil {
		_ = DropTestDatabase(adminDSN, testDB)
		return nil, nil, fmt.Errorf("repo root not found: %w", err)
	}
	if err := db.Migrate(db.DriverPostgres, testDSN, filepath.Join(root, "migrations")); err != nil {
		_ = DropTestDatabase(adminDSN, testDB)
		return nil, nil, err
	}

	conn, err = db.Open(context.Background(), db.DriverPostgres, testDSN)
	if err != nil {
		_ = DropTestDatabase(adminDSN, testDB)
		return nil, nil, fmt.Errorf("open test DB: %w (dsn %s)", err, redactDSN(baseDSN))
	}

	teardown = func() error {
		_ = conn.Close()
		return DropTestDatabase(adminDSN, testDB)
	}
	return conn, teardown, nil
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	username := u.User.Username()
	if username == "" {
		return dsn
	}
	u.User = url.UserPassword(username, "******")
	return u.String()
}
