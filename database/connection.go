package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/ridoystarlord/relmap/utils"
)

// ResolveDSN returns dsn when given, DATABASE_URL otherwise.
func ResolveDSN(dsn string) (string, error) {
	if dsn != "" {
		return dsn, nil
	}
	return utils.GetDatabaseURL()
}

// Connect opens a single database connection and checks it responds.
func Connect(ctx context.Context, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return conn, nil
}
