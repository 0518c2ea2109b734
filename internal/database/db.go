// Package database opens the MySQL connection pool backing the event
// catalog and the registration ledger.
package database

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    _ "github.com/go-sql-driver/mysql"
)

const pingTimeout = 5 * time.Second

// BuildDSN assembles the MySQL DSN for this service. parseTime maps
// DATETIME columns onto time.Time and loc=UTC matches the UTC timestamps
// written by the repositories, so a row read back compares equal to the
// value that was stored.
func BuildDSN(user, pass, host, port, name string) string {
    auth := user
    if pass != "" {
        auth = user + ":" + pass
    }
    return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
        auth, host, port, name)
}

// Open connects to MySQL and verifies the connection with a bounded ping.
// The registration ledger holds a row lock for the duration of each
// register transaction, so the pool is kept moderate: more connections
// than that would mostly queue on the same event row anyway.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
    db, err := sql.Open("mysql", BuildDSN(user, pass, host, port, name))
    if err != nil {
        return nil, err
    }

    db.SetMaxOpenConns(20)
    db.SetMaxIdleConns(10)
    db.SetConnMaxLifetime(30 * time.Minute)
    db.SetConnMaxIdleTime(5 * time.Minute)

    ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("ping database: %w", err)
    }
    return db, nil
}
