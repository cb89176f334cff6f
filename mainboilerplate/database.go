package mainboilerplate

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql" // Registers "mysql".
	_ "github.com/lib/pq"              // Registers "postgres".
	_ "github.com/mattn/go-sqlite3"    // Registers "sqlite3".
	"go.gazette.dev/sqlbulk/bulk"
)

// DatabaseConfig configures the database to which row-operations are applied.
type DatabaseConfig struct {
	Driver string `long:"driver" env:"DRIVER" default:"postgres" choice:"postgres" choice:"mysql" choice:"sqlite3" description:"database/sql driver name"`
	DSN    string `long:"dsn" env:"DSN" default:"host=/var/run/postgresql sslmode=disable" description:"Database connection string, in the format of the driver"`
}

// MustOpen opens the configured database, and verifies it's reachable.
func (c *DatabaseConfig) MustOpen() (*sql.DB, bulk.Conn) {
	var db, conn, err = bulk.Open(c.Driver, c.DSN)
	Must(err, "failed to open database", "driver", c.Driver)
	Must(db.Ping(), "failed to connect to database", "driver", c.Driver)
	return db, conn
}
