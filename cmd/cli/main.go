package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jarfuel/waitlist-api/config"
	"github.com/jarfuel/waitlist-api/domain/waitlist"
	"github.com/jarfuel/waitlist-api/internal/log"
	"github.com/jarfuel/waitlist-api/pkg/auth"
	"github.com/jarfuel/waitlist-api/pkg/constants"
	"github.com/jarfuel/waitlist-api/pkg/migrations"
	"github.com/jarfuel/waitlist-api/pkg/utils"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "migrate":
		runMigrate(logger)
		return

	case "export":
		runExport(logger, args[1:])
		return

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func runMigrate(logger *log.Logger) {
	dbCfg := &config.DBConfig{}
	db, err := config.NewDatabase(logger, dbCfg)
	if err != nil {
		logger.Error("Failed to connect to database for migration", "error", err.Error())

		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance for migration", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close SQL DB after migration", "error", err.Error())
		}
	}()

	migrationsDir := utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := migrations.Up(ctx, sqlDB, migrations.Config{Dir: migrationsDir, Logger: logger}); err != nil {
		logger.Error("Database migration failed", "error", err.Error())
		os.Exit(1)
	}

	logger.Info("Database migrations completed")
}

// runExport writes all waitlist entries as CSV. It is gated by the same admin
// token as the HTTP listing: the token from EXPORT_ADMIN_TOKEN must match
// ADMIN_API_TOKEN, and an unconfigured token fails closed.
func runExport(logger *log.Logger, args []string) {
	if !auth.VerifyAdminToken(utils.GetEnvTrimmed("EXPORT_ADMIN_TOKEN")) {
		logger.Error("Export denied: EXPORT_ADMIN_TOKEN missing or does not match ADMIN_API_TOKEN")
		os.Exit(1)
	}

	dbCfg := &config.DBConfig{}
	db, err := config.NewDatabase(logger, dbCfg)
	if err != nil {
		logger.Error("Failed to connect to database for export", "error", err.Error())
		os.Exit(1)
	}

	out := os.Stdout
	if len(args) > 0 && args[0] != "" && args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			logger.Error("Failed to create export file", "path", args[0], "error", err.Error())
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repository := waitlist.NewRemoteWaitlistRepository(db)
	entries, err := repository.GetAllEntries(ctx)
	if err != nil {
		logger.Error("Failed to fetch waitlist entries", "error", err.Error())
		os.Exit(1)
	}

	writer := csv.NewWriter(out)
	header := []string{"position", "email", "referral_code", "referred_by", "referral_count", "share_count", "source", "flavor", "with_coffee", "created_at"}
	if err := writer.Write(header); err != nil {
		logger.Error("Failed to write CSV header", "error", err.Error())
		os.Exit(1)
	}

	for _, entry := range entries {
		referredBy := ""
		if entry.ReferredBy != nil {
			referredBy = *entry.ReferredBy
		}
		record := []string{
			strconv.Itoa(entry.Position),
			entry.Email,
			entry.ReferralCode,
			referredBy,
			strconv.Itoa(entry.ReferralCount),
			strconv.Itoa(entry.ShareCount),
			entry.Source,
			entry.Flavor,
			strconv.FormatBool(entry.WithCoffee),
			entry.CreatedAt.Format(constants.RFC3339DateTimeFormat),
		}
		if err := writer.Write(record); err != nil {
			logger.Error("Failed to write CSV record", "error", err.Error())
			os.Exit(1)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		logger.Error("Failed to flush CSV output", "error", err.Error())
		os.Exit(1)
	}

	logger.Info("Waitlist export completed", "entries", len(entries))
}

func printUsage() {
	fmt.Println("Usage: cli <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate        Run database migrations and exit")
	fmt.Println("  export [file]  Export waitlist entries as CSV (stdout when no file is given)")
}
