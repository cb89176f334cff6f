package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	mbp "go.gazette.dev/sqlbulk/mainboilerplate"
	"go.gazette.dev/sqlbulk/metrics"
)

const iniFilename = "bulkctl.ini"

// Config is the top-level configuration object of bulkctl.
var Config = new(struct {
	DB          mbp.DatabaseConfig    `group:"Database" namespace:"db" env-namespace:"DB"`
	Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
})

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	parser.LongDescription = `bulkctl applies rows of CSV files to a database table, as batched INSERTs or DELETEs.

	Each CSV record is a single row-operation, having one column for each --field.
	Row-operations are grouped into batches of --batch-size, and each batch is
	applied with a single statement.

	Optionally configure bulkctl with a '` + iniFilename + `' file in the current working directory,
	or with '~/.config/sqlbulk/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
	the tool's current configuration.
	`

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mustAddCmd(parser.Command, "insert", "Insert rows of CSV files", `
Insert each record of the given CSV files as a row of --table.

For example, to load files having columns "id" and "name" into table "people":
>    bulkctl insert --table people --field id --field name --header people-*.csv
`, &cmdInsert{})
	mustAddCmd(parser.Command, "delete", "Delete rows matching CSV records", `
Delete all rows of --table whose --field values equal those of any record of
the given CSV files. Where the table has multiple rows matching a record, all
of them are deleted.

For example, to delete rows of "people" having ids listed in a file:
>    bulkctl delete --table people --field id departed.csv
`, &cmdDelete{})
	mustAddCmd(parser.Command, "apply", "Run jobs of a YAML specification", `
Run each insert or delete job of a YAML specification, in order. For example:

  - op: insert
    table: people
    fields: [id, name]
    batch_size: 500
    header: true
    files: [people-1.csv, people-2.csv]
  - op: delete
    table: people
    fields: [id]
    files: [departed.csv]
`, &cmdApply{})

	mbp.MustParseConfig(parser, iniFilename)
}

// startup initializes logging and metrics for a command.
func startup() {
	mbp.InitLog(Config.Log)
	prometheus.MustRegister(metrics.BulkCollectors()...)

	log.WithFields(log.Fields{
		"driver":  Config.DB.Driver,
		"version": mbp.Version,
	}).Debug("starting bulkctl")
}

func mustAddCmd(cmd *flags.Command, name, short, long string, cfg interface{}) *flags.Command {
	cmd, err := cmd.AddCommand(name, short, long, cfg)
	mbp.Must(err, "failed to add command")
	return cmd
}
