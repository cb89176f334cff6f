package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"
	mbp "go.gazette.dev/sqlbulk/mainboilerplate"
)

// OperatorConfig is common configuration of the insert and delete commands.
type OperatorConfig struct {
	Table     string   `long:"table" short:"t" required:"true" description:"Name of the table"`
	Fields    []string `long:"field" short:"f" required:"true" description:"Field of the table, in column order of input files. Repeat for each field"`
	BatchSize int      `long:"batch-size" short:"b" default:"100" description:"Number of row-operations applied by each statement"`
	Header    bool     `long:"header" description:"Skip the first (header) record of each file"`
	Null      string   `long:"null" description:"Column value which is applied as SQL NULL"`
}

// FileArgs are positional CSV file arguments.
type FileArgs struct {
	Files []string `positional-arg-name:"FILE" required:"1"`
}

func (cfg OperatorConfig) job(op string, files []string) Job {
	return Job{
		Op:        op,
		Table:     cfg.Table,
		Fields:    cfg.Fields,
		BatchSize: cfg.BatchSize,
		Header:    cfg.Header,
		Null:      cfg.Null,
		Files:     files,
	}
}

type cmdInsert struct {
	OperatorConfig
	Args FileArgs `positional-args:"yes"`
}

func (cmd *cmdInsert) Execute([]string) error {
	return run([]Job{cmd.job("insert", cmd.Args.Files)})
}

type cmdDelete struct {
	OperatorConfig
	Args FileArgs `positional-args:"yes"`
}

func (cmd *cmdDelete) Execute([]string) error {
	return run([]Job{cmd.job("delete", cmd.Args.Files)})
}

type cmdApply struct {
	SpecsPath string `long:"specs" default:"-" description:"Path of the YAML job specification. Use '-' for stdin"`
}

func (cmd *cmdApply) Execute([]string) error {
	var r io.Reader = os.Stdin
	if cmd.SpecsPath != "-" {
		var f, err = os.Open(cmd.SpecsPath)
		mbp.Must(err, "failed to open specification", "path", cmd.SpecsPath)
		defer f.Close()
		r = f
	}

	var jobs, err = decodeJobs(r)
	mbp.Must(err, "failed to decode specification", "path", cmd.SpecsPath)

	return run(jobs)
}

func run(jobs []Job) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	startup()

	var db, conn = Config.DB.MustOpen()
	defer db.Close()

	return runJobs(context.Background(), conn, afero.NewOsFs(), os.Stdout, jobs)
}
