package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"dbfload/internal/config"
	"dbfload/internal/dbf"
	"dbfload/internal/metrics"
	"dbfload/internal/metrics/prompush"
	"dbfload/internal/pipeline"
	"dbfload/internal/stats"
	"dbfload/internal/storage"

	// register all backends with the storage factory.
	// config selects which one to use, but support for all of them is built in.
	_ "dbfload/internal/storage/all"
)

// main is the entry point for the dbfload binary. It loads the job config,
// optionally initializes a metrics backend, and runs the transfer.
func main() {
	var (
		cfgPath           string
		srcPath           string
		tableName         string
		createTable       bool
		truncate          bool
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/jobs/sample.json", "job config JSON path")
	flag.StringVar(&srcPath, "src", "", "DBF file path (overrides source.dbf.path)")
	flag.StringVar(&tableName, "table", "", "destination table (overrides storage.db.table)")
	flag.BoolVar(&createTable, "create-table", false, "create the destination table (overrides storage.db.create_table)")
	flag.BoolVar(&truncate, "truncate", false, "truncate before loading (overrides storage.db.truncate)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (e.g. pushgateway, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}
	defer f.Close()

	var job config.Job
	if err := json.NewDecoder(f).Decode(&job); err != nil {
		fatalf("decode config: %v", err)
	}

	// Command-line overrides beat the config file, but only for flags the
	// user actually set.
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "src":
			job.Source.Dbf.Path = srcPath
		case "table":
			job.Storage.DB.Table = tableName
		case "create-table":
			job.Storage.DB.CreateTable = createTable
		case "truncate":
			job.Storage.DB.Truncate = truncate
		}
	})

	issues := config.ValidateJob(job)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		jobName := job.Name
		if jobName == "" {
			jobName = "dbfload_job"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("job %s: source=%s storage=%s table=%s",
			job.Name, job.Source.Dbf.Path, job.Storage.Kind, job.Storage.DB.Table)
	}

	src, err := dbf.Open(job.Source.Dbf.Path, dbf.Options{
		Charset: job.Source.Options.String("charset", ""),
	})
	if err != nil {
		fatalf("%v", err)
	}
	defer src.Close()

	if *verbose {
		log.Printf("job %s: %d records, %d fields", job.Name, src.RecordCount(), len(src.Fields()))
	}

	sink, err := storage.New(ctx, storage.Config{
		Kind:      job.Storage.Kind,
		DSN:       job.Storage.DB.DSN,
		BatchSize: job.Runtime.BatchSize,
	})
	if err != nil {
		fatalf("%v", err)
	}
	defer sink.Close()

	sum, err := pipeline.Transfer(ctx, src, sink, stats.NewAccumulator(), pipeline.Options{
		Table:         job.Storage.DB.Table,
		CreateTable:   job.Storage.DB.CreateTable,
		Truncate:      job.Storage.DB.Truncate,
		SkipDeleted:   job.Source.Options.Bool("skip_deleted", false),
		QueueCapacity: job.Runtime.QueueCapacity,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("job %s: table=%s read=%d written=%d elapsed=%s hash=%016x\n",
		job.Name, sum.Table, sum.RowsRead, sum.RowsWritten,
		sum.Elapsed.Truncate(time.Millisecond), sum.ContentHash)

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
