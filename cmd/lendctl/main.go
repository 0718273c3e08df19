package main

import (
	"context"
	"flag"
	"fmt"
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

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handle, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer handle.Close()

	guard := schema.NewGuard(handle)
	borrowerSvc := borrowerdomain.NewService(sqliterepo.NewBorrowerRepository(handle), guard)
	loanSvc := loandomain.NewService(sqliterepo.NewLoanRepository(handle), borrowerSvc, guard)

	switch os.Args[1] {
	case "migrate":
		if err := db.Migrate(ctx, handle); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		logger.Info("schema up to date", "path", cfg.DBPath)

	case "loan":
		fs := flag.NewFlagSet("loan", flag.ExitOnError)
		itemID := fs.String("item", "", "catalog item id")
		borrowerID := fs.String("borrower", "", "borrower id")
		due := fs.String("due", "", "due date (RFC3339, default now+14d)")
		fs.Parse(os.Args[2:])

		var dueDate *time.Time
		if *due != "" {
			t, err := time.Parse(time.RFC3339, *due)
			if err != nil {
				logger.Error("invalid -due, want RFC3339", "err", err)
				os.Exit(2)
			}
			dueDate = &t
		}
		id, err := loanSvc.LoanBook(ctx, *itemID, *borrowerID, dueDate)
		if err != nil {
			logger.Error("loan failed", "item", *itemID, "err", err)
			os.Exit(1)
		}
		fmt.Println(id)

	case "return":
		fs := flag.NewFlagSet("return", flag.ExitOnError)
		loanID := fs.String("loan", "", "loan id")
		fs.Parse(os.Args[2:])

		if err := loanSvc.ReturnBook(ctx, *loanID); err != nil {
			logger.Error("return failed", "loan", *loanID, "err", err)
			os.Exit(1)
		}
		logger.Info("returned", "loan", *loanID)

	case "renew":
		fs := flag.NewFlagSet("renew", flag.ExitOnError)
		loanID := fs.String("loan", "", "loan id")
		days := fs.Int("days", loandomain.DefaultExtensionDays, "extension in days")
		fs.Parse(os.Args[2:])

		updated, err := loanSvc.RenewLoan(ctx, *loanID, *days)
		if err != nil {
			logger.Error("renew failed", "loan", *loanID, "err", err)
			os.Exit(1)
		}
		fmt.Println(updated.DueDate.Format(time.RFC3339))

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		borrowerID := fs.String("borrower", "", "scope to one borrower")
		fs.Parse(os.Args[2:])

		items, err := loanSvc.ListActiveLoans(ctx, *borrowerID)
		if err != nil {
			logger.Error("list failed", "err", err)
			os.Exit(1)
		}
		printLoans(items)

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		itemID := fs.String("item", "", "catalog item id")
		fs.Parse(os.Args[2:])

		available, err := loanSvc.ItemAvailable(ctx, *itemID)
		if err != nil {
			logger.Error("status failed", "item", *itemID, "err", err)
			os.Exit(1)
		}
		if available {
			fmt.Println("available")
			return
		}
		current, err := loanSvc.FindLoanForItem(ctx, *itemID)
		if err != nil {
			logger.Error("status failed", "item", *itemID, "err", err)
			os.Exit(1)
		}
		if current == nil {
			fmt.Println("available")
			return
		}
		fmt.Println(loandomain.Effective(*current, time.Now().UTC()))

	default:
		usage()
		os.Exit(2)
	}
}

func printLoans(items []loandomain.Entity) {
	now := time.Now().UTC()
	for _, e := range items {
		fmt.Printf("%s\titem=%s\tborrower=%s\tdue=%s\t%s\n",
			e.ID, e.ItemID, e.BorrowerID, e.DueDate.Format(time.RFC3339), loandomain.Effective(e, now))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lendctl <migrate|loan|return|renew|list|status> [flags]")
}
