package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/basekick-labs/tsdump/internal/cliquery"
	"github.com/basekick-labs/tsdump/internal/config"
	"github.com/basekick-labs/tsdump/internal/dump"
	"github.com/basekick-labs/tsdump/internal/logger"
	"github.com/basekick-labs/tsdump/internal/scan"
	"github.com/basekick-labs/tsdump/internal/store"
)

// Version is set at build time
var Version = "dev"

const usageText = `Usage: tsdump [--delete|--import] START-DATE [END-DATE] query [queries...]
       tsdump --batch-delete-older END-DATE metric-prefix

Queries are written as: aggregator metric [tag=value...]

The --import flag changes the output to one line per data point, in a
format suitable for re-ingestion, instead of the default format which
better represents how the data is stored.
The --delete flag deletes every row matched by the query. It implies
--import.
The --batch-delete-older mode deletes every row older than END-DATE for
every metric whose name starts with the given prefix, in parallel.
`

// usage prints the error and usage text, then exits with retval.
func usage(errmsg string, retval int) {
	fmt.Fprintln(os.Stderr, errmsg)
	fmt.Fprint(os.Stderr, usageText)
	os.Exit(retval)
}

func main() {
	fs := flag.NewFlagSet("tsdump", flag.ExitOnError)
	importFormat := fs.Bool("import", false, "Print rows in a format suitable for re-ingestion.")
	deleteRows := fs.Bool("delete", false, "Delete rows as they are scanned. Implies --import.")
	batchDeleteOlder := fs.Bool("batch-delete-older", false, "Delete every metric matching a prefix.")
	output := fs.String("output", "", "Write dump output to this file instead of stdout (.gz compresses).")
	configFile := fs.String("config", "", "Path to the config file.")
	showVersion := fs.Bool("version", false, "Print the version and exit.")
	fs.Parse(os.Args[1:])
	args := fs.Args()

	if *showVersion {
		fmt.Println("tsdump", Version)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log := logger.Get("tsdump")

	if len(args) == 0 {
		usage("Missing arguments.", 1)
	}
	if *batchDeleteOlder {
		if len(args) != 2 {
			usage("Wrong number of arguments with option --batch-delete-older.", 2)
		}
	} else if len(args) < 3 {
		usage("Not enough arguments.", 2)
	}

	client, resolver, err := store.Open(cfg.Storage.Backend, cfg.Storage.Table, cfg.Storage.PageSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}

	runner := scan.NewRunner(client, resolver, logger.Get("scan"))
	runner.ProgressInterval = time.Duration(cfg.Scan.ProgressIntervalSeconds) * time.Second
	ctx := context.Background()

	if *batchDeleteOlder {
		endTime, err := cliquery.ParseDate(args[0])
		if err != nil {
			usage(fmt.Sprintf("Invalid end date: %v.", err), 2)
		}
		deleter := scan.NewBatchDeleter(client, runner, logger.Get("batch-delete"))
		deleter.Workers = cfg.Scan.DeleteWorkers
		rows, err := deleter.Run(ctx, endTime, args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("Batch delete failed")
		}
		log.Info().Int64("rows_touched", rows).Msg("Batch delete complete")
		return
	}

	queries, err := cliquery.ParseCommandLineQuery(args)
	if err != nil {
		usage(fmt.Sprintf("Invalid query: %v.", err), 2)
	}

	out, err := dump.OpenOutput(*output)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open output")
	}

	rows, err := runner.Run(ctx, queries, scan.Options{
		Delete:       *deleteRows,
		ImportFormat: *deleteRows || *importFormat,
		Out:          out,
	})
	if err != nil {
		out.Close()
		log.Fatal().Err(err).Msg("Scan failed")
	}
	if err := out.Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to flush output")
	}
	log.Debug().Int64("rows_touched", rows).Msg("Scan complete")
}
