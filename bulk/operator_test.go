package bulk

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestInsertScenario(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("sqlite3")

	var op, err = NewInserter(ctx, conn, "people", []string{"id", "name"}, 2)
	require.NoError(t, err)

	// Exactly one statement, of a full batch, was prepared at construction.
	require.Equal(t, []string{"INSERT INTO `people` (`id`,`name`) VALUES (?,?), (?,?)"}, conn.prepared)
	require.Empty(t, conn.execs)

	flushed, err := op.Queue(ctx, 1, "a")
	require.NoError(t, err)
	require.False(t, flushed)
	require.Equal(t, 1, op.Pending())

	flushed, err = op.Queue(ctx, 2, "b")
	require.NoError(t, err)
	require.True(t, flushed)
	require.Equal(t, 0, op.Pending())
	require.Equal(t, int64(2), op.AffectedRows())

	flushed, err = op.Queue(ctx, 3, "c")
	require.NoError(t, err)
	require.False(t, flushed)
	require.Equal(t, 1, op.Pending())

	require.NoError(t, op.Flush(ctx))
	require.Equal(t, 0, op.Pending())
	require.Equal(t, int64(3), op.AffectedRows())
	require.Equal(t, 3, op.Queued())
	require.Equal(t, 3, op.Flushed())

	require.Equal(t, []recordedExec{
		{query: "INSERT INTO `people` (`id`,`name`) VALUES (?,?), (?,?)", args: []interface{}{1, "a", 2, "b"}},
		{query: "INSERT INTO `people` (`id`,`name`) VALUES (?,?)", args: []interface{}{3, "c"}},
	}, conn.execs)

	// The partial statement was prepared during Flush, and then closed.
	require.Len(t, conn.prepared, 2)
	require.Equal(t, 1, conn.closed)
}

func TestDeleteFlushUsesRemainderStatement(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("mysql")

	var op, err = NewDeleter(ctx, conn, "things", []string{"id"}, 3)
	require.NoError(t, err)

	for _, id := range []int{5, 7} {
		flushed, err := op.Queue(ctx, id)
		require.NoError(t, err)
		require.False(t, flushed)
	}
	require.NoError(t, op.Flush(ctx))

	require.Equal(t, []string{
		"DELETE FROM `things` WHERE (`id`=?) OR (`id`=?) OR (`id`=?)",
		"DELETE FROM `things` WHERE (`id`=?) OR (`id`=?)",
	}, conn.prepared)
	require.Equal(t, []recordedExec{
		{query: "DELETE FROM `things` WHERE (`id`=?) OR (`id`=?)", args: []interface{}{5, 7}},
	}, conn.execs)
}

func TestQueueSignalsOnlyFullBatches(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("postgres")

	var op, err = NewInserter(ctx, conn, "t", []string{"a", "b", "c"}, 4)
	require.NoError(t, err)

	for i := 1; i <= 13; i++ {
		flushed, err := op.Queue(ctx, i, i*10, i*100)
		require.NoError(t, err)
		require.Equal(t, i%4 == 0, flushed, "queue %d", i)

		require.Len(t, op.buffer, op.Pending()*3)
		require.True(t, op.Pending() >= 0 && op.Pending() < 4)
		require.Equal(t, op.Queued(), op.Flushed()+op.Pending())
	}
	require.Len(t, conn.execs, 3)
	require.Equal(t, 1, op.Pending())
	require.Equal(t, 12, op.Flushed())

	// Full batches reuse the single statement prepared at construction.
	require.Len(t, conn.prepared, 1)
	for _, e := range conn.execs {
		require.Equal(t, conn.prepared[0], e.query)
	}
}

func TestFlushOfEmptyBufferIsNoop(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("sqlite3")

	var op, err = NewInserter(ctx, conn, "t", []string{"a"}, 2)
	require.NoError(t, err)

	require.NoError(t, op.Flush(ctx))
	require.Empty(t, conn.execs)
	require.Len(t, conn.prepared, 1)

	// Also a no-op immediately following a full batch.
	_, _ = op.Queue(ctx, 1)
	_, _ = op.Queue(ctx, 2)
	require.Len(t, conn.execs, 1)
	require.NoError(t, op.Flush(ctx))
	require.Len(t, conn.execs, 1)
}

func TestQueueValidatesValueCount(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("sqlite3")

	var op, err = NewInserter(ctx, conn, "t", []string{"a", "b"}, 3)
	require.NoError(t, err)

	_, err = op.Queue(ctx, 1, 2)
	require.NoError(t, err)

	flushed, err := op.Queue(ctx, 1, 2, 3)
	require.False(t, flushed)
	require.Equal(t, ErrInvalidInput, errors.Cause(err))
	require.EqualError(t, err, "expected 2 values for table t, not 3: invalid row-operation values")

	_, err = op.Queue(ctx)
	require.Equal(t, ErrInvalidInput, errors.Cause(err))

	// State is unchanged.
	require.Equal(t, 1, op.Pending())
	require.Equal(t, 1, op.Queued())
	require.Equal(t, []interface{}{1, 2}, op.buffer)
}

func TestConfigErrorsPrecedeConnectionUse(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("sqlite3")

	var op, err = NewInserter(ctx, conn, "t", nil, 10)
	require.Nil(t, op)
	require.Equal(t, ErrConfig, errors.Cause(err))

	op, err = NewDeleter(ctx, conn, "t", []string{"a"}, 0)
	require.Nil(t, op)
	require.Equal(t, ErrConfig, errors.Cause(err))
	require.EqualError(t, err, "batch size 0 of table t is less than one: invalid bulk operator configuration")

	require.Empty(t, conn.prepared)
}

func TestPrepareErrorFailsConstruction(t *testing.T) {
	var conn = newRecordingConn("sqlite3")
	conn.prepareErr = errors.New("no such table")

	var op, err = NewInserter(context.Background(), conn, "t", []string{"a"}, 10)
	require.Nil(t, op)
	require.EqualError(t, err, "preparing 10-operation statement of table t: no such table")
}

func TestResetRetainsConfiguration(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("postgres")

	var op, err = NewInserter(ctx, conn, "t", []string{"a", "b"}, 2)
	require.NoError(t, err)

	for i := 0; i != 3; i++ {
		_, err = op.Queue(ctx, i, i)
		require.NoError(t, err)
	}
	require.Equal(t, 3, op.Queued())
	require.Equal(t, 1, op.Pending())
	require.Equal(t, int64(2), op.AffectedRows())

	op.Reset()

	require.Equal(t, 0, op.Queued())
	require.Equal(t, 0, op.Flushed())
	require.Equal(t, 0, op.Pending())
	require.Equal(t, int64(0), op.AffectedRows())
	require.Empty(t, op.buffer)

	require.Equal(t, `"t"`, op.Table())
	require.Equal(t, []string{`"a"`, `"b"`}, op.Fields())
	require.Equal(t, 2, op.BatchSize())

	// No statement was re-prepared, and the dropped row-operation is never executed.
	require.NoError(t, op.Flush(ctx))
	require.Len(t, conn.prepared, 1)
	require.Len(t, conn.execs, 1)

	// The operator is reusable.
	_, _ = op.Queue(ctx, 10, 11)
	flushed, err := op.Queue(ctx, 12, 13)
	require.NoError(t, err)
	require.True(t, flushed)
	require.Equal(t, []interface{}{10, 11, 12, 13}, conn.execs[1].args)
	require.Equal(t, `INSERT INTO "t" ("a","b") VALUES ($1,$2), ($3,$4)`, conn.execs[1].query)
}

func TestFailedFullBatchRemainsPending(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("sqlite3")

	var op, err = NewInserter(ctx, conn, "t", []string{"a"}, 2)
	require.NoError(t, err)

	conn.execErr = errors.New("connection reset")

	_, err = op.Queue(ctx, 1)
	require.NoError(t, err)
	flushed, err := op.Queue(ctx, 2)
	require.False(t, flushed)
	require.EqualError(t, err, "executing 2-operation full batch of table t: connection reset")

	require.Equal(t, 2, op.Pending())
	require.Equal(t, 2, op.Queued())
	require.Equal(t, 0, op.Flushed())
	require.Equal(t, int64(0), op.AffectedRows())

	// Further input is refused until the batch is resolved.
	_, err = op.Queue(ctx, 3)
	require.Equal(t, ErrBatchPending, errors.Cause(err))
	require.Equal(t, 2, op.Queued())

	// Flush retries the batch using the full-batch statement.
	conn.execErr = nil
	require.NoError(t, op.Flush(ctx))
	require.Equal(t, 0, op.Pending())
	require.Equal(t, 2, op.Flushed())
	require.Equal(t, int64(2), op.AffectedRows())
	require.Len(t, conn.prepared, 1)
	require.Equal(t, []interface{}{1, 2}, conn.execs[len(conn.execs)-1].args)
}

func TestFailedPartialFlushMayBeRetried(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("sqlite3")

	var op, err = NewDeleter(ctx, conn, "t", []string{"a", "b"}, 5)
	require.NoError(t, err)

	_, _ = op.Queue(ctx, 1, "x")
	_, _ = op.Queue(ctx, 2, "y")

	conn.execErr = errors.New("deadlock")
	require.EqualError(t, op.Flush(ctx), "executing 2-operation partial batch of table t: deadlock")
	require.Equal(t, 2, op.Pending())
	require.Equal(t, []interface{}{1, "x", 2, "y"}, op.buffer)

	conn.execErr = nil
	require.NoError(t, op.Flush(ctx))
	require.Equal(t, 0, op.Pending())
	require.Equal(t, 2, op.Flushed())

	// Both attempts prepared (and closed) their own partial statement.
	require.Len(t, conn.prepared, 3)
	require.Equal(t, 2, conn.closed)
}

func TestRowsAffectedFailureCountsZero(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("sqlite3")
	conn.rowsAffectedErr = errors.New("not supported")

	var op, err = NewInserter(ctx, conn, "t", []string{"a"}, 1)
	require.NoError(t, err)

	flushed, err := op.Queue(ctx, 1)
	require.NoError(t, err)
	require.True(t, flushed)
	require.Equal(t, 0, op.Pending())
	require.Equal(t, int64(0), op.AffectedRows())
}

func TestCloseReleasesFullBatchStatement(t *testing.T) {
	var ctx = context.Background()
	var conn = newRecordingConn("sqlite3")

	var op, err = NewInserter(ctx, conn, "t", []string{"a"}, 3)
	require.NoError(t, err)

	_, _ = op.Queue(ctx, 1)
	require.NoError(t, op.Close())
	require.Equal(t, 1, conn.closed)
	require.Empty(t, conn.execs) // Close does not flush.
}

type recordedExec struct {
	query string
	args  []interface{}
}

// recordingConn is a Conn which records prepared statements and their
// executions. Each execution reports one affected row per row-operation.
type recordingConn struct {
	driver   string
	prepared []string
	execs    []recordedExec
	closed   int

	prepareErr      error
	execErr         error
	rowsAffectedErr error
}

func newRecordingConn(driver string) *recordingConn { return &recordingConn{driver: driver} }

func (c *recordingConn) DriverName() string { return c.driver }

func (c *recordingConn) PrepareContext(_ context.Context, query string) (Stmt, error) {
	if c.prepareErr != nil {
		return nil, c.prepareErr
	}
	c.prepared = append(c.prepared, query)
	return &recordingStmt{conn: c, query: query}, nil
}

type recordingStmt struct {
	conn  *recordingConn
	query string
}

func (s *recordingStmt) ExecContext(_ context.Context, args ...interface{}) (sql.Result, error) {
	if s.conn.execErr != nil {
		return nil, s.conn.execErr
	}
	s.conn.execs = append(s.conn.execs, recordedExec{
		query: s.query,
		args:  append([]interface{}(nil), args...),
	})
	// Report one affected row per predicate or VALUES group.
	var rows = int64(strings.Count(s.query, "("))
	if strings.HasPrefix(s.query, "INSERT") {
		rows-- // Field list.
	}
	return recordingResult{rows: rows, err: s.conn.rowsAffectedErr}, nil
}

func (s *recordingStmt) Close() error {
	s.conn.closed++
	return nil
}

type recordingResult struct {
	rows int64
	err  error
}

func (r recordingResult) LastInsertId() (int64, error) { return 0, nil }
func (r recordingResult) RowsAffected() (int64, error) { return r.rows, r.err }
