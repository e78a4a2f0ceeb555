package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/stmtbatch/audit"
	"github.com/tomyedwab/stmtbatch/config"
	"github.com/tomyedwab/stmtbatch/database"
	"github.com/tomyedwab/stmtbatch/loader"
	"github.com/tomyedwab/stmtbatch/statements"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	planPath := flag.String("plan", "", "Path to the YAML load plan")
	flag.Parse()

	if *planPath == "" {
		log.Fatalf("Usage: %s -plan <plan.yaml> [-config <config.yaml>]", os.Args[0])
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	plan, err := loader.LoadPlan(*planPath)
	if err != nil {
		log.Fatalf("Failed to load plan: %v", err)
	}

	db, err := database.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Setup(ctx, cfg.Schema...); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	sink := statements.LogSink(nil)
	if cfg.Audit {
		auditLogger, err := audit.NewLogger(db.GetDB())
		if err != nil {
			log.Fatalf("Failed to create audit logger: %v", err)
		}
		sink = statements.MultiSink(sink, auditLogger.Sink("stmtload:"+*planPath))
	}

	report, err := loader.Run(ctx, db, plan, sink)
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}

	fmt.Printf("Registered %d statements, queued %d parameter sets\n", report.Statements, report.Queued)
	if len(report.Failures) > 0 {
		fmt.Printf("%d statements failed during teardown\n", len(report.Failures))
		os.Exit(2)
	}
}
