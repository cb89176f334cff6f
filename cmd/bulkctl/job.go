package main

import (
	"context"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.gazette.dev/sqlbulk/bulk"
	"go.gazette.dev/sqlbulk/loader"
	"gopkg.in/yaml.v2"
)

// Job is a batched insert or delete of the records of CSV files.
type Job struct {
	Op        string   `yaml:"op"`
	Table     string   `yaml:"table"`
	Fields    []string `yaml:"fields"`
	BatchSize int      `yaml:"batch_size"`
	Header    bool     `yaml:"header"`
	Null      string   `yaml:"null"`
	Files     []string `yaml:"files"`
}

// Validate returns an error if the Job is not well-formed.
func (j Job) Validate() error {
	if j.Op != "insert" && j.Op != "delete" {
		return errors.Errorf("op must be 'insert' or 'delete' (got %q)", j.Op)
	} else if j.Table == "" {
		return errors.New("expected table")
	} else if len(j.Files) == 0 {
		return errors.Errorf("table %s: expected files", j.Table)
	}
	return nil
}

// jobResult is a completed (or failed) file of a Job.
type jobResult struct {
	Job
	loader.Summary
}

// decodeJobs strictly decodes a YAML sequence of Jobs.
func decodeJobs(r io.Reader) ([]Job, error) {
	var b, err = io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var jobs []Job
	if err = yaml.UnmarshalStrict(b, &jobs); err != nil {
		return nil, errors.WithMessage(err, "decoding jobs")
	}
	for i, j := range jobs {
		if j.BatchSize == 0 {
			jobs[i].BatchSize = bulk.DefaultBatchSize
		}
		if err = j.Validate(); err != nil {
			return nil, errors.WithMessagef(err, "job %d", i)
		}
	}
	return jobs, nil
}

// runJobs runs each Job in order, stopping at the first error. A summary
// table of loaded files is written to |w| in either case.
func runJobs(ctx context.Context, conn bulk.Conn, fs afero.Fs, w io.Writer, jobs []Job) error {
	var results []jobResult
	var err error

	for _, job := range jobs {
		var summaries []loader.Summary
		summaries, err = runJob(ctx, conn, fs, job)

		for _, s := range summaries {
			results = append(results, jobResult{Job: job, Summary: s})
		}
		if err != nil {
			break
		}
	}
	writeResults(w, results)
	return err
}

func runJob(ctx context.Context, conn bulk.Conn, fs afero.Fs, job Job) ([]loader.Summary, error) {
	var newOp = bulk.NewInserter
	if job.Op == "delete" {
		newOp = bulk.NewDeleter
	}

	var op, err = newOp(ctx, conn, job.Table, job.Fields, job.BatchSize)
	if err != nil {
		return nil, err
	}
	defer op.Close()

	var l = loader.New(fs, op)
	l.Header = job.Header
	l.Null = job.Null
	l.Progress = func(s loader.Summary) {
		log.WithFields(log.Fields{
			"run":     s.RunID,
			"table":   job.Table,
			"path":    s.Path,
			"flushed": humanize.Comma(int64(s.Flushed)),
		}).Info("progress")
	}

	return l.LoadAll(ctx, job.Files)
}

func writeResults(w io.Writer, results []jobResult) {
	var table = tablewriter.NewWriter(w)
	table.SetHeader([]string{"Op", "Table", "File", "Queued", "Flushed", "Affected", "Duration"})

	for _, r := range results {
		table.Append([]string{
			r.Op,
			r.Table,
			r.Path,
			humanize.Comma(int64(r.Queued)),
			humanize.Comma(int64(r.Flushed)),
			humanize.Comma(r.Affected),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}

