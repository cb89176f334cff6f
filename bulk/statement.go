package bulk

import "strings"

// Builder produces the SQL text of a single statement which performs |n|
// row-operations against |table|. |table| and |fields| are already quoted.
// Positional placeholders of the statement are ordered to match a flattened
// buffer of len(fields) values per row-operation, in queue order.
type Builder func(d Dialect, table string, fields []string, n int) string

// InsertStatement builds a multi-row INSERT of |n| rows, eg:
//
//	INSERT INTO `t` (`a`,`b`) VALUES (?,?), (?,?)
func InsertStatement(d Dialect, table string, fields []string, n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(fields, ","))
	b.WriteString(") VALUES ")

	var arg = 1
	for row := 0; row != n; row++ {
		if row != 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i := range fields {
			if i != 0 {
				b.WriteByte(',')
			}
			d.writePlaceholder(&b, arg)
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// DeleteStatement builds a DELETE having |n| OR'd predicate groups, each an
// AND of per-field equalities, eg:
//
//	DELETE FROM `t` WHERE (`a`=? AND `b`=?) OR (`a`=? AND `b`=?)
//
// Every row matching any group is deleted. Where the table holds duplicate
// rows of a key tuple, more rows may be deleted than groups were queued.
func DeleteStatement(d Dialect, table string, fields []string, n int) string {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE ")

	var arg = 1
	for row := 0; row != n; row++ {
		if row != 0 {
			b.WriteString(" OR ")
		}
		b.WriteByte('(')
		for i, f := range fields {
			if i != 0 {
				b.WriteString(" AND ")
			}
			b.WriteString(f)
			b.WriteByte('=')
			d.writePlaceholder(&b, arg)
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}
