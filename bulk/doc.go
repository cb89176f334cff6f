// Package bulk batches row-level INSERT and DELETE operations against a
// relational table, so that many logical operations are committed using few
// physical statement executions.
//
// An Operator accumulates queued row-operations into a flattened buffer. When
// the buffer holds a full batch, a statement prepared once at construction
// (and sized for exactly that batch) is executed with the buffer as its
// arguments. A final Flush executes a statement sized for the remainder:
//
//	var ins, err = bulk.NewInserter(ctx, conn, "rides", []string{"id", "station"}, 500)
//	for _, r := range rides {
//		if _, err = ins.Queue(ctx, r.ID, r.Station); err != nil {
//			return err
//		}
//	}
//	if err = ins.Flush(ctx); err != nil {
//		return err
//	}
//
// Operators are not safe for concurrent use.
package bulk
