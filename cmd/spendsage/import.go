package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lucidfin/spendsage/internal/model"
	"github.com/lucidfin/spendsage/internal/ofx"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// importBatchSize bounds how many transactions go into one storage write.
const importBatchSize = 100

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import financial transactions from OFX or QFX (Quicken) files exported from your bank.

Examples:
  # Import single file
  spendsage import --user alice ~/Downloads/chase_jan_2024.qfx

  # Import all QFX files in a directory
  spendsage import --user alice ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringP("user", "u", "", "User the transactions belong to (required)")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}
	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	slog.Info("🌿 Importing OFX files...",
		"file_count", len(allFiles),
		"user", userID,
		"dry_run", dryRun)

	ctx := cmd.Context()
	parser := ofx.NewParser()

	var allTransactions []model.Transaction
	seen := make(map[string]bool) // For deduplication across files
	for _, filePath := range allFiles {
		slog.Info("Processing file", "file", filepath.Base(filePath))

		f, err := os.Open(filePath)
		if err != nil {
			slog.Error("Failed to open file", "file", filePath, "error", err)
			continue
		}

		transactions, err := parser.ParseFile(ctx, f, userID)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", filePath, "error", err)
			continue
		}
		if len(transactions) == 0 {
			slog.Warn("No transactions found in file", "file", filepath.Base(filePath))
			continue
		}

		for _, txn := range transactions {
			if !seen[txn.ID] {
				seen[txn.ID] = true
				allTransactions = append(allTransactions, txn)
			}
		}
	}

	if len(allTransactions) == 0 {
		return fmt.Errorf("no transactions parsed from %d file(s)", len(allFiles))
	}

	if dryRun {
		slog.Info("Dry run complete, nothing saved",
			"transactions", len(allTransactions))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.Default(int64(len(allTransactions)), "Saving transactions")
	for start := 0; start < len(allTransactions); start += importBatchSize {
		end := start + importBatchSize
		if end > len(allTransactions) {
			end = len(allTransactions)
		}
		if err := store.SaveTransactions(ctx, allTransactions[start:end]); err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
		_ = bar.Add(end - start)
	}

	slog.Info("✅ Import complete", "transactions", len(allTransactions))

	return nil
}
