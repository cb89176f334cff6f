package bulk

import (
	"strconv"
	"strings"
)

// Dialect captures the per-driver details of generated SQL text: the
// character used to quote identifiers, and the style of positional
// placeholders.
type Dialect struct {
	// Name is the driver name from which the Dialect was resolved.
	Name string
	// QuoteChar wraps table and column identifiers.
	QuoteChar byte
	// Numbered placeholders ($1, $2, ...) are used if true. Otherwise
	// each placeholder is a bare '?'.
	Numbered bool
}

// DialectOf resolves the Dialect of a database/sql driver name. Drivers of
// the postgres family use double-quoted identifiers and numbered placeholders.
// All other drivers, including unknown ones, use backticks and '?'.
func DialectOf(driverName string) Dialect {
	if isPostgres(driverName) {
		return Dialect{Name: driverName, QuoteChar: '"', Numbered: true}
	}
	return Dialect{Name: driverName, QuoteChar: '`'}
}

// Quote wraps |ident| with the Dialect's QuoteChar. Embedded quote
// characters are not escaped: callers must pass well-formed identifiers.
func (d Dialect) Quote(ident string) string {
	var q = string(d.QuoteChar)
	return q + ident + q
}

// writePlaceholder writes the |n|th (one-based) positional placeholder.
func (d Dialect) writePlaceholder(b *strings.Builder, n int) {
	if d.Numbered {
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	} else {
		b.WriteByte('?')
	}
}

func isPostgres(driverName string) bool {
	return driverName == "pgx" || strings.HasPrefix(driverName, "postgres")
}
