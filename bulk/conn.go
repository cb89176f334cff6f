package bulk

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Conn is the connection capability consumed by an Operator. It reports the
// driver name from which a Dialect is resolved, and prepares statements.
type Conn interface {
	DriverName() string
	PrepareContext(ctx context.Context, query string) (Stmt, error)
}

// Stmt is a prepared statement of a Conn.
type Stmt interface {
	ExecContext(ctx context.Context, args ...interface{}) (sql.Result, error)
	Close() error
}

// Preparer is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// NewConn adapts a database/sql Preparer into a Conn of the named driver.
func NewConn(p Preparer, driverName string) Conn {
	return &sqlConn{p: p, driver: driverName}
}

// Open a *sql.DB of the driver and data source, and return it along with a
// Conn which uses it. The pool is limited to a single open connection:
// Operators are single-connection, and SQLite ":memory:" databases are
// private to the connection which created them.
func Open(driverName, dsn string) (*sql.DB, Conn, error) {
	var db, err = sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "opening %s database", driverName)
	}
	db.SetMaxOpenConns(1)

	return db, NewConn(db, driverName), nil
}

type sqlConn struct {
	p      Preparer
	driver string
}

func (c *sqlConn) DriverName() string { return c.driver }

func (c *sqlConn) PrepareContext(ctx context.Context, query string) (Stmt, error) {
	var stmt, err = c.p.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt, nil
}
