package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budgetbook/internal/models"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect holds everything that differs between the supported databases.
type dialect struct {
	name        string
	placeholder sq.PlaceholderFormat
	// dateText renders a DATE column as YYYY-MM-DD text.
	dateText func(col string) string
	// period renders the bucket label of a date column for a granularity.
	period func(g models.Granularity, col string) (string, error)
	// uniqueViolation reports whether err is a unique constraint failure.
	uniqueViolation func(err error) bool
	// migrationDriver wraps conn for golang-migrate. release frees what the driver holds
	// without closing conn.
	migrationDriver func(ctx context.Context, conn *sql.DB) (drv database.Driver, release func() error, err error)
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var sqliteDialect = dialect{
	name:        DriverSQLite,
	placeholder: sq.Question,
	dateText:    func(col string) string { return col },
	period: func(g models.Granularity, col string) (string, error) {
		switch g {
		case models.Day:
			return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", col), nil
		case models.Week:
			// Monday of the week the date falls in.
			return fmt.Sprintf("date(%s, 'weekday 0', '-6 days')", col), nil
		case models.Month:
			return fmt.Sprintf("strftime('%%Y-%%m', %s)", col), nil
		case models.Year:
			return fmt.Sprintf("strftime('%%Y', %s)", col), nil
		}
		return "", fmt.Errorf("unknown granularity %q", g)
	},
	uniqueViolation: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	},
	migrationDriver: func(_ context.Context, conn *sql.DB) (database.Driver, func() error, error) {
		// Closing the sqlite driver closes conn, so it is never closed here.
		drv, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
		return drv, func() error { return nil }, err
	},
}

var postgresDialect = dialect{
	name:        DriverPostgres,
	placeholder: sq.Dollar,
	dateText:    func(col string) string { return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", col) },
	period: func(g models.Granularity, col string) (string, error) {
		switch g {
		case models.Day:
			return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", col), nil
		case models.Week:
			return fmt.Sprintf("to_char(date_trunc('week', %s), 'YYYY-MM-DD')", col), nil
		case models.Month:
			return fmt.Sprintf("to_char(%s, 'YYYY-MM')", col), nil
		case models.Year:
			return fmt.Sprintf("to_char(%s, 'YYYY')", col), nil
		}
		return "", fmt.Errorf("unknown granularity %q", g)
	},
	uniqueViolation: func(err error) bool {
		var pe *pq.Error
		return errors.As(err, &pe) && pe.Code == "23505"
	},
	migrationDriver: func(ctx context.Context, conn *sql.DB) (database.Driver, func() error, error) {
		c, err := conn.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		drv, err := migratepg.WithConnection(ctx, c, &migratepg.Config{})
		if err != nil {
			_ = c.Close()
			return nil, nil, err
		}
		return drv, drv.Close, nil
	},
}
