package dbconnect

import (
	"context"
	"database/sql"
)

type Database interface {
	Connect(ctx context.Context) (*sql.DB, error)
	Ping(ctx context.Context) error
	Close() error
}
