package bulk

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/sqlbulk/metrics"
)

// DefaultBatchSize is a reasonable number of row-operations per batch.
const DefaultBatchSize = 100

var (
	// ErrConfig is the cause of errors returned by New for an empty field
	// list or a batch size less than one.
	ErrConfig = errors.New("invalid bulk operator configuration")
	// ErrInvalidInput is the cause of errors returned by Queue when the
	// number of values doesn't match the number of fields.
	ErrInvalidInput = errors.New("invalid row-operation values")
	// ErrBatchPending is the cause of errors returned by Queue while a full
	// batch, whose execution previously failed, is still pending. Flush to
	// retry the batch, or Reset to discard it.
	ErrBatchPending = errors.New("failed batch is pending")
)

// Operator buffers row-operations of a table and executes them in batches.
// Its configuration (table, fields, and batch size) is fixed at construction.
type Operator struct {
	conn      Conn
	dialect   Dialect
	build     Builder
	name      string   // Raw table name, used for logging and metrics.
	table     string   // Quoted table name.
	fields    []string // Quoted field names.
	batchSize int
	full      Stmt // Prepared statement of exactly |batchSize| row-operations.

	buffer   []interface{} // Flattened values of |pending| row-operations.
	pending  int
	queued   int
	affected int64
}

// NewInserter returns an Operator which INSERTs queued rows of |table|.
func NewInserter(ctx context.Context, conn Conn, table string, fields []string, batchSize int) (*Operator, error) {
	return New(ctx, conn, InsertStatement, table, fields, batchSize)
}

// NewDeleter returns an Operator which DELETEs rows of |table| matching
// queued tuples of |fields|.
func NewDeleter(ctx context.Context, conn Conn, table string, fields []string, batchSize int) (*Operator, error) {
	return New(ctx, conn, DeleteStatement, table, fields, batchSize)
}

// New returns an Operator which uses Builder |build| to generate statements.
// The Dialect of |conn| is resolved, |table| and |fields| are quoted, and a
// statement of |batchSize| row-operations is prepared.
func New(ctx context.Context, conn Conn, build Builder, table string, fields []string, batchSize int) (*Operator, error) {
	if len(fields) == 0 {
		return nil, errors.Wrapf(ErrConfig, "table %s has no fields", table)
	} else if batchSize < 1 {
		return nil, errors.Wrapf(ErrConfig, "batch size %d of table %s is less than one", batchSize, table)
	}

	var op = &Operator{
		conn:      conn,
		dialect:   DialectOf(conn.DriverName()),
		build:     build,
		name:      table,
		batchSize: batchSize,
		fields:    make([]string, len(fields)),
		buffer:    make([]interface{}, 0, batchSize*len(fields)),
	}
	op.table = op.dialect.Quote(table)

	for i, f := range fields {
		op.fields[i] = op.dialect.Quote(f)
	}

	var err error
	if op.full, err = conn.PrepareContext(ctx, build(op.dialect, op.table, op.fields, batchSize)); err != nil {
		return nil, errors.WithMessagef(err, "preparing %d-operation statement of table %s", batchSize, table)
	}
	return op, nil
}

// Queue a row-operation having one value per field, in field order. If the
// queued row-operation completes a batch, the batch is executed and Queue
// returns true. The return value is informational only (eg, for progress
// reporting).
func (op *Operator) Queue(ctx context.Context, values ...interface{}) (bool, error) {
	if len(values) != len(op.fields) {
		return false, errors.Wrapf(ErrInvalidInput, "expected %d values for table %s, not %d",
			len(op.fields), op.name, len(values))
	} else if op.pending == op.batchSize {
		return false, errors.Wrapf(ErrBatchPending, "table %s", op.name)
	}

	op.buffer = append(op.buffer, values...)
	op.pending++
	op.queued++
	metrics.QueuedTotal.WithLabelValues(op.name).Inc()

	if op.pending != op.batchSize {
		return false, nil
	} else if err := op.exec(ctx, op.full, metrics.Full); err != nil {
		return false, err
	}
	return true, nil
}

// Flush executes all pending row-operations. It must be called after the
// final Queue, or pending row-operations are never executed. If no
// row-operations are pending, Flush does nothing.
func (op *Operator) Flush(ctx context.Context) error {
	if op.pending == 0 {
		return nil
	} else if op.pending == op.batchSize {
		// Retry of a full batch which previously failed.
		return op.exec(ctx, op.full, metrics.Full)
	}

	var stmt, err = op.conn.PrepareContext(ctx, op.build(op.dialect, op.table, op.fields, op.pending))
	if err != nil {
		return errors.WithMessagef(err, "preparing %d-operation statement of table %s", op.pending, op.name)
	}
	defer stmt.Close()

	return op.exec(ctx, stmt, metrics.Partial)
}

// Reset discards pending row-operations and zeroes all counters. The
// prepared statement and configuration of the Operator are retained.
func (op *Operator) Reset() {
	clear(op.buffer)
	op.buffer = op.buffer[:0]
	op.pending = 0
	op.queued = 0
	op.affected = 0
}

// Close the Operator's prepared statement. Close does not Flush: any pending
// row-operations are dropped, and a warning is logged.
func (op *Operator) Close() error {
	if op.pending != 0 {
		log.WithFields(log.Fields{
			"table":   op.name,
			"pending": op.pending,
		}).Warn("closing bulk operator having unflushed row-operations")
	}
	return op.full.Close()
}

// Queued is the number of Queue calls since construction or the last Reset.
func (op *Operator) Queued() int { return op.queued }

// Flushed is the number of queued row-operations which have been executed.
func (op *Operator) Flushed() int { return op.queued - op.pending }

// Pending is the number of buffered row-operations not yet executed.
func (op *Operator) Pending() int { return op.pending }

// AffectedRows is the cumulative number of rows reported affected by
// executed statements.
func (op *Operator) AffectedRows() int64 { return op.affected }

// Table is the quoted table name.
func (op *Operator) Table() string { return op.table }

// Fields are the quoted field names.
func (op *Operator) Fields() []string { return append([]string(nil), op.fields...) }

// BatchSize is the number of row-operations of a full batch.
func (op *Operator) BatchSize() int { return op.batchSize }

// Dialect resolved from the Conn's driver name.
func (op *Operator) Dialect() Dialect { return op.dialect }

// exec executes |stmt| with the buffered values. Only upon success is the
// buffer cleared: a failed batch remains pending and may be retried.
func (op *Operator) exec(ctx context.Context, stmt Stmt, kind string) error {
	var started = time.Now()
	var result, err = stmt.ExecContext(ctx, op.buffer...)
	metrics.StatementSeconds.WithLabelValues(op.name, kind).Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.StatementsTotal.WithLabelValues(op.name, kind, metrics.Fail).Inc()
		return errors.WithMessagef(err, "executing %d-operation %s batch of table %s", op.pending, kind, op.name)
	}
	metrics.StatementsTotal.WithLabelValues(op.name, kind, metrics.Ok).Inc()

	// The statement has been applied. A driver unable to report affected
	// rows contributes zero, rather than failing an applied batch.
	var affected, raErr = result.RowsAffected()
	if raErr != nil {
		log.WithFields(log.Fields{
			"table": op.name,
			"err":   raErr,
		}).Warn("driver failed to report affected rows")
		affected = 0
	}
	metrics.AffectedRowsTotal.WithLabelValues(op.name).Add(float64(affected))

	log.WithFields(log.Fields{
		"table":      op.name,
		"kind":       kind,
		"operations": op.pending,
		"affected":   affected,
	}).Debug("executed batch")

	op.affected += affected
	clear(op.buffer)
	op.buffer = op.buffer[:0]
	op.pending = 0
	return nil
}
