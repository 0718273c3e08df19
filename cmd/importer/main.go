package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/booky/lending/internal/config"
	"github.com/booky/lending/internal/db"
	borrowerdomain "github.com/booky/lending/internal/domain/borrower"
	loandomain "github.com/booky/lending/internal/domain/loan"
	"github.com/booky/lending/internal/observability"
	sqliterepo "github.com/booky/lending/internal/repository/sqlite"
	"github.com/booky/lending/internal/schema"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env, cfg.LogJSON)

	file := flag.String("file", "", "lending export csv")
	migrate := flag.Bool("migrate", false, "provision the lending schema before importing")
	flag.Parse()

	if *file == "" {
		logger.Error("missing -file")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	handle, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer handle.Close()

	if *migrate {
		if err := db.Migrate(ctx, handle); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
	}

	src, err := os.Open(*file)
	if err != nil {
		logger.Error("failed to open csv", "file", *file, "err", err)
		os.Exit(1)
	}
	defer src.Close()

	guard := schema.NewGuard(handle)
	borrowerSvc := borrowerdomain.NewService(sqliterepo.NewBorrowerRepository(handle), guard)
	loanSvc := loandomain.NewService(sqliterepo.NewLoanRepository(handle), borrowerSvc, guard)

	result, err := loanSvc.ImportCSV(ctx, src)
	if err != nil {
		logger.Error("import failed", "file", *file, "err", err)
		os.Exit(1)
	}

	for _, rowErr := range result.Errors {
		logger.Warn("row skipped", "row", rowErr.Row, "field", rowErr.Field, "reason", rowErr.Message)
	}
	logger.Info("import finished", "file", *file, "processed", result.Processed, "skipped", len(result.Errors))
	if result.Processed == 0 && len(result.Errors) > 0 {
		os.Exit(1)
	}
}
