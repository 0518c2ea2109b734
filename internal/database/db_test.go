package database

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
    dsn := BuildDSN("app", "s3cret", "db.internal", "3306", "eventflow")
    assert.Equal(t,
        "app:s3cret@tcp(db.internal:3306)/eventflow?charset=utf8mb4&parseTime=true&loc=UTC",
        dsn)
}

func TestBuildDSN_EmptyPassword(t *testing.T) {
    dsn := BuildDSN("app", "", "localhost", "3306", "eventflow")
    assert.Equal(t,
        "app@tcp(localhost:3306)/eventflow?charset=utf8mb4&parseTime=true&loc=UTC",
        dsn)
}
