// Package loader applies row-operations read from CSV files through a
// bulk.Operator. Each CSV record is one row-operation, with one column per
// field of the Operator.
package loader

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Operator is the subset of *bulk.Operator used by a Loader.
type Operator interface {
	Queue(ctx context.Context, values ...interface{}) (bool, error)
	Flush(ctx context.Context) error
	Reset()
	Queued() int
	Flushed() int
	AffectedRows() int64
}

// Summary of a loaded file.
type Summary struct {
	RunID    uuid.UUID
	Path     string
	Queued   int
	Flushed  int
	Affected int64
	Duration time.Duration
}

// Loader loads CSV files into an Operator.
type Loader struct {
	Fs       afero.Fs
	Operator Operator
	// RunID is attached to the Summary and log events of every loaded file.
	RunID uuid.UUID
	// Header indicates the first record of each file is a header, and is skipped.
	Header bool
	// Null, if non-empty, is a column value which is loaded as SQL NULL.
	Null string
	// Comma is the CSV field delimiter. If zero, ',' is used.
	Comma rune
	// Progress, if non-nil, is called after each executed full batch.
	Progress func(Summary)
}

// New returns a Loader of the Operator, reading files from |fs|.
func New(fs afero.Fs, op Operator) *Loader {
	return &Loader{
		Fs:       fs,
		Operator: op,
		RunID:    uuid.New(),
	}
}

// Load the file at |path|. The Operator is Reset beforehand, so that the
// returned Summary reflects only row-operations of this file. The remainder
// of the file's row-operations are flushed before Load returns.
func (l *Loader) Load(ctx context.Context, path string) (Summary, error) {
	var started = time.Now()
	l.Operator.Reset()

	var f, err = l.Fs.Open(path)
	if err != nil {
		return l.summary(path, started), errors.WithMessage(err, "opening input")
	}
	defer f.Close()

	var r = csv.NewReader(f)
	r.FieldsPerRecord = -1 // Checked by Operator.Queue.
	r.ReuseRecord = true
	if l.Comma != 0 {
		r.Comma = l.Comma
	}

	var values []interface{}
	for first := true; ; first = false {
		var record, err = r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return l.summary(path, started), errors.WithMessagef(err, "reading %s", path)
		} else if first && l.Header {
			continue
		}

		values = values[:0]
		for _, col := range record {
			if l.Null != "" && col == l.Null {
				values = append(values, nil)
			} else {
				values = append(values, col)
			}
		}

		flushed, err := l.Operator.Queue(ctx, values...)
		if err != nil {
			var line, _ = r.FieldPos(0)
			return l.summary(path, started), errors.WithMessagef(err, "%s:%d", path, line)
		} else if flushed && l.Progress != nil {
			l.Progress(l.summary(path, started))
		}
	}

	if err = l.Operator.Flush(ctx); err != nil {
		return l.summary(path, started), errors.WithMessagef(err, "flushing %s", path)
	}
	var s = l.summary(path, started)

	log.WithFields(log.Fields{
		"run":      s.RunID,
		"path":     s.Path,
		"queued":   humanize.Comma(int64(s.Queued)),
		"affected": humanize.Comma(s.Affected),
		"duration": s.Duration,
	}).Info("loaded file")

	return s, nil
}

// LoadAll loads each of |paths| in order, stopping at the first error.
// Summaries of loaded files, including the failed one, are returned.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]Summary, error) {
	var out []Summary
	for _, path := range paths {
		var s, err = l.Load(ctx, path)
		out = append(out, s)

		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (l *Loader) summary(path string, started time.Time) Summary {
	return Summary{
		RunID:    l.RunID,
		Path:     path,
		Queued:   l.Operator.Queued(),
		Flushed:  l.Operator.Flushed(),
		Affected: l.Operator.AffectedRows(),
		Duration: time.Since(started),
	}
}
