// mdcheck - market-data quality and session tooling
// This application provides a command-line interface for validating exchange
// market-data quality, filtering records by trading session, and fetching
// data through the vendor boundary.
//
// Usage:
//
//	mdcheck validate --input data.json --schema ohlcv-1h --report report.json
//	mdcheck filter --input data.json --sessions Asian,London --output filtered.json
//	mdcheck filter --input data.json --transitions --minutes-before 30
//	mdcheck stats --input data.json
//	mdcheck fetch --symbols ES.c.0 --schema ohlcv-1h --start 2024-01-01
//
// For detailed help on any command, use: mdcheck <command> --help
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"mdcheck/internal/config"
	"mdcheck/internal/fetch"
	"mdcheck/internal/logger"
	"mdcheck/internal/models"
	"mdcheck/internal/session"
	"mdcheck/internal/validator"
)

// CLI version information
const (
	Version = "1.0.0"
	AppName = "mdcheck"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0
	ExitUsageError  = 1
	ExitConfigError = 2
	ExitDataError   = 4
	ExitInterrupt   = 130
)

// CLI represents the main CLI application
type CLI struct {
	config        *config.AppConfig
	loggerManager *logger.LoggerManager
	logger        *slog.Logger
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(ExitUsageError)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := &CLI{}
	if err := cli.initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to initialize CLI: %v\n", err)
		os.Exit(ExitConfigError)
	}
	defer cli.loggerManager.Close()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "validate":
		if err := cli.handleValidate(ctx, args); err != nil {
			cli.exitWithError("Validation failed", err)
		}
	case "filter":
		if err := cli.handleFilter(ctx, args); err != nil {
			cli.exitWithError("Filtering failed", err)
		}
	case "stats":
		if err := cli.handleStats(ctx, args); err != nil {
			cli.exitWithError("Statistics failed", err)
		}
	case "fetch":
		if err := cli.handleFetch(ctx, args); err != nil {
			cli.exitWithError("Fetch failed", err)
		}
	case "--version", "-v":
		fmt.Printf("%s version %s\n", AppName, Version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(ExitUsageError)
	}
}

// errInvalidData marks a run that completed but found invalid data, so main
// can exit with the data error code rather than a usage failure.
type errInvalidData struct{}

func (errInvalidData) Error() string { return "data validation failed" }

func (cli *CLI) exitWithError(msg string, err error) {
	if _, ok := err.(errInvalidData); ok {
		os.Exit(ExitDataError)
	}
	cli.logger.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitUsageError)
}

// initialize sets up configuration and logging
func (cli *CLI) initialize(ctx context.Context) error {
	cm := config.NewConfigManager(os.Getenv("CONFIG_PATH"), slog.Default())
	cfg, err := cm.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cli.config = cfg

	lm, err := logger.NewLoggerManager(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	cli.loggerManager = lm
	cli.logger = lm.GetLogger()
	return nil
}

// ValidateFlags holds the validate command options
type ValidateFlags struct {
	Input           string
	Schema          string
	MaxGapMinutes   int
	PriceOutlierStd float64
	ReportPath      string
	Help            bool
}

// handleValidate runs the quality battery over an input file
func (cli *CLI) handleValidate(ctx context.Context, args []string) error {
	flags, err := cli.parseValidateFlags(args)
	if err != nil {
		return err
	}
	if flags.Help {
		printValidateHelp()
		return nil
	}
	if flags.Input == "" {
		return fmt.Errorf("--input is required")
	}

	records, err := models.ReadRecordsFile(flags.Input)
	if err != nil {
		return err
	}

	v := validator.New(validator.Config{
		Schema:          flags.Schema,
		MaxGapMinutes:   flags.MaxGapMinutes,
		PriceOutlierStd: flags.PriceOutlierStd,
	}, cli.logger)

	report := v.Validate(records)
	printReport(report)

	if flags.ReportPath != "" {
		if err := writeJSON(flags.ReportPath, report); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Printf("\nReport saved to %s\n", flags.ReportPath)
	}

	if !report.Valid {
		return errInvalidData{}
	}
	return nil
}

func (cli *CLI) parseValidateFlags(args []string) (*ValidateFlags, error) {
	flags := &ValidateFlags{
		Schema:          cli.config.Validator.Schema,
		MaxGapMinutes:   cli.config.Validator.MaxGapMinutes,
		PriceOutlierStd: cli.config.Validator.PriceOutlierStd,
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--input", "-i":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--input requires a value")
			}
			flags.Input = args[i+1]
			i++
		case "--schema":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--schema requires a value")
			}
			flags.Schema = args[i+1]
			i++
		case "--max-gap-minutes":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--max-gap-minutes requires a value")
			}
			minutes, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid max-gap-minutes value: %w", err)
			}
			flags.MaxGapMinutes = minutes
			i++
		case "--price-outlier-std":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--price-outlier-std requires a value")
			}
			std, err := strconv.ParseFloat(args[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid price-outlier-std value: %w", err)
			}
			flags.PriceOutlierStd = std
			i++
		case "--report", "-r":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--report requires a value")
			}
			flags.ReportPath = args[i+1]
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	return flags, nil
}

// FilterFlags holds the filter command options
type FilterFlags struct {
	Input         string
	Sessions      string
	Transitions   bool
	MinutesBefore int
	MinutesAfter  int
	Stats         bool
	Output        string
	Help          bool
}

// handleFilter filters records by session membership or transition proximity
func (cli *CLI) handleFilter(ctx context.Context, args []string) error {
	flags, err := cli.parseFilterFlags(args)
	if err != nil {
		return err
	}
	if flags.Help {
		printFilterHelp()
		return nil
	}
	if flags.Input == "" {
		return fmt.Errorf("--input is required")
	}
	if !flags.Transitions && flags.Sessions == "" && !flags.Stats {
		return fmt.Errorf("specify --sessions, --transitions, or --stats")
	}

	records, err := models.ReadRecordsFile(flags.Input)
	if err != nil {
		return err
	}

	classifier := session.NewClassifier(cli.logger)

	if flags.Stats {
		printSessionStats(classifier.Statistics(records))
	}

	var result *session.FilterResult
	switch {
	case flags.Transitions:
		result = classifier.FilterTransitions(records, flags.MinutesBefore, flags.MinutesAfter)
	case flags.Sessions != "":
		names := splitSessions(flags.Sessions)
		result, err = classifier.FilterBySessions(records, names)
		if err != nil {
			return err
		}
	default:
		return nil
	}

	fmt.Printf("Kept %d of %d records\n", result.Metadata.FilteredCount, result.Metadata.OriginalCount)

	if flags.Output != "" {
		dataset := models.FilteredDataset{Data: result.Records, Metadata: result.Metadata}
		if err := writeJSON(flags.Output, dataset); err != nil {
			return fmt.Errorf("failed to save filtered data: %w", err)
		}
		fmt.Printf("Filtered data saved to %s\n", flags.Output)
	}
	return nil
}

func (cli *CLI) parseFilterFlags(args []string) (*FilterFlags, error) {
	flags := &FilterFlags{
		MinutesBefore: cli.config.Session.MinutesBefore,
		MinutesAfter:  cli.config.Session.MinutesAfter,
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--input", "-i":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--input requires a value")
			}
			flags.Input = args[i+1]
			i++
		case "--sessions", "--session", "-s":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--sessions requires a value")
			}
			flags.Sessions = args[i+1]
			i++
		case "--transitions":
			flags.Transitions = true
		case "--minutes-before":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--minutes-before requires a value")
			}
			minutes, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid minutes-before value: %w", err)
			}
			flags.MinutesBefore = minutes
			i++
		case "--minutes-after":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--minutes-after requires a value")
			}
			minutes, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid minutes-after value: %w", err)
			}
			flags.MinutesAfter = minutes
			i++
		case "--stats":
			flags.Stats = true
		case "--output", "-o":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--output requires a value")
			}
			flags.Output = args[i+1]
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	return flags, nil
}

// handleStats prints per-session statistics for an input file
func (cli *CLI) handleStats(ctx context.Context, args []string) error {
	input := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--input", "-i":
			if i+1 >= len(args) {
				return fmt.Errorf("--input requires a value")
			}
			input = args[i+1]
			i++
		case "--help", "-h":
			fmt.Println("Usage: mdcheck stats --input data.json")
			return nil
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	if input == "" {
		return fmt.Errorf("--input is required")
	}

	records, err := models.ReadRecordsFile(input)
	if err != nil {
		return err
	}

	classifier := session.NewClassifier(cli.logger)
	printSessionStats(classifier.Statistics(records))
	return nil
}

// FetchFlags holds the fetch command options
type FetchFlags struct {
	Symbols     string
	Schema      string
	Start       string
	End         string
	Limit       int
	Dataset     string
	Output      string
	NoCostCheck bool
	Help        bool
}

// handleFetch retrieves records through the vendor boundary, validates them,
// and optionally exports them
func (cli *CLI) handleFetch(ctx context.Context, args []string) error {
	flags, err := cli.parseFetchFlags(args)
	if err != nil {
		return err
	}
	if flags.Help {
		printFetchHelp()
		return nil
	}
	if flags.Symbols == "" {
		return fmt.Errorf("--symbols is required")
	}
	if flags.Start == "" {
		return fmt.Errorf("--start is required")
	}

	client := fetch.NewClient(&fetch.MockVendor{}, cli.logger).
		WithRetryPolicy(cli.config.Fetch.MaxAttempts, cli.config.Fetch.RetryDelayDuration())

	req := fetch.Request{
		Dataset: flags.Dataset,
		Symbols: strings.Split(flags.Symbols, ","),
		Schema:  flags.Schema,
		Start:   flags.Start,
		End:     flags.End,
		Limit:   flags.Limit,
		StypeIn: cli.config.Fetch.StypeIn,
	}

	if !flags.NoCostCheck {
		estimate, err := client.EstimateCost(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Estimated cost: $%.2f (%.2f MB)\n", estimate.CostUSD, estimate.SizeMB)
		if estimate.CostUSD > cli.config.Fetch.CostConfirmUSD {
			fmt.Printf("Estimated cost exceeds $%.2f. Continue? (y/n): ", cli.config.Fetch.CostConfirmUSD)
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(strings.TrimSpace(response)) != "y" {
				fmt.Println("Fetch cancelled.")
				return nil
			}
		}
	}

	dsRange, err := client.DatasetRange(ctx, flags.Dataset)
	if err != nil {
		return err
	}
	fmt.Printf("Dataset range: %s to %s\n", dsRange.Start, dsRange.End)

	records, err := client.FetchRecords(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d records\n", len(records))

	// Post-fetch quality check with the configured schema
	v := validator.New(validator.Config{
		Schema:          flags.Schema,
		MaxGapMinutes:   cli.config.Validator.MaxGapMinutes,
		PriceOutlierStd: cli.config.Validator.PriceOutlierStd,
	}, cli.logger)
	report := v.Validate(records)
	fmt.Printf("Data valid: %v (%d issues)\n", report.Valid, len(report.Issues))

	if flags.Output != "" {
		envelope := map[string]any{"data": records}
		if err := writeJSON(flags.Output, envelope); err != nil {
			return fmt.Errorf("failed to save fetched data: %w", err)
		}
		fmt.Printf("Data saved to %s\n", flags.Output)
	}
	return nil
}

func (cli *CLI) parseFetchFlags(args []string) (*FetchFlags, error) {
	flags := &FetchFlags{
		Schema:  cli.config.Validator.Schema,
		Dataset: cli.config.Fetch.Dataset,
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--symbols", "--symbol", "-s":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--symbols requires a value")
			}
			flags.Symbols = args[i+1]
			i++
		case "--schema":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--schema requires a value")
			}
			flags.Schema = args[i+1]
			i++
		case "--start":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--start requires a value")
			}
			flags.Start = args[i+1]
			i++
		case "--end":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--end requires a value")
			}
			flags.End = args[i+1]
			i++
		case "--limit":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--limit requires a value")
			}
			limit, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid limit value: %w", err)
			}
			flags.Limit = limit
			i++
		case "--dataset":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--dataset requires a value")
			}
			flags.Dataset = args[i+1]
			i++
		case "--output", "-o":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--output requires a value")
			}
			flags.Output = args[i+1]
			i++
		case "--no-cost-check":
			flags.NoCostCheck = true
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	return flags, nil
}

// printReport prints a validation report to the console
func printReport(report *models.Report) {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("DATA VALIDATION REPORT")
	fmt.Println(line)
	fmt.Printf("\nTotal Records: %d\n", report.TotalRecords)
	if report.Valid {
		fmt.Println("Overall Valid: YES")
	} else {
		fmt.Println("Overall Valid: NO")
	}

	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Println("CHECK RESULTS")
	fmt.Println(strings.Repeat("-", 60))

	printCheck := func(name string, valid bool, detail string) {
		status := "PASS"
		if !valid {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %-18s %s\n", status, name, detail)
	}

	if c := report.Checks.TimestampGaps; c != nil {
		printCheck("timestamp_gaps", c.Valid, fmt.Sprintf("gaps=%d", c.TotalGaps))
	}
	if c := report.Checks.Duplicates; c != nil {
		printCheck("duplicates", c.Valid, fmt.Sprintf("duplicate_groups=%d", c.DuplicatesFound))
	}
	if c := report.Checks.PriceRange; c != nil {
		if c.Note != "" {
			printCheck("price_range", c.Valid, c.Note)
		} else {
			printCheck("price_range", c.Valid,
				fmt.Sprintf("range=[%.2f, %.2f] negative=%d zero=%d outliers=%d",
					c.MinPrice, c.MaxPrice, c.NegativePrices, c.ZeroPrices, c.Outliers))
		}
	}
	if c := report.Checks.RecordCount; c != nil {
		expected := "unavailable"
		if c.ExpectedCount != nil {
			expected = strconv.Itoa(*c.ExpectedCount)
		}
		printCheck("record_count", c.Valid, fmt.Sprintf("actual=%d expected=%s", c.ActualCount, expected))
	}
	if c := report.Checks.Completeness; c != nil {
		printCheck("data_completeness", c.Valid, fmt.Sprintf("missing_fields=%d", len(c.MissingFields)))
	}

	if len(report.Issues) > 0 {
		fmt.Println("\n" + strings.Repeat("-", 60))
		fmt.Printf("ISSUES FOUND (%d)\n", len(report.Issues))
		fmt.Println(strings.Repeat("-", 60))
		for i, issue := range report.Issues {
			if i >= 20 {
				fmt.Printf("\n... and %d more issues\n", len(report.Issues)-20)
				break
			}
			fmt.Printf("%2d. [%s] %s: %s\n", i+1, strings.ToUpper(string(issue.Severity)), issue.Type, issue.Message)
		}
	}
	fmt.Println("\n" + line)
}

// printSessionStats prints per-session statistics to the console
func printSessionStats(stats map[session.Name]session.Stats) {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("SESSION STATISTICS")
	fmt.Println(line)

	for _, name := range session.Names() {
		s := stats[name]
		fmt.Printf("\n%s Session:\n", name)
		fmt.Printf("  Records: %d (%.1f%%)\n", s.Count, s.Percentage)
		if s.Volume > 0 {
			fmt.Printf("  Volume: %d\n", s.Volume)
		}
		if s.Trades > 0 {
			fmt.Printf("  Trades: %d\n", s.Trades)
		}
	}
	fmt.Println("\n" + line)
}

func splitSessions(s string) []string {
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, strings.TrimSpace(p))
	}
	return names
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func printUsage() {
	fmt.Printf(`%s - market-data quality and session tooling (version %s)

Usage:
  %s <command> [flags]

Commands:
  validate   Run quality checks over a record file
  filter     Filter records by trading session or transition proximity
  stats      Print per-session statistics
  fetch      Fetch records through the vendor boundary

Flags:
  --help, -h     Show help for a command
  --version, -v  Show version

Environment:
  CONFIG_PATH    Path to a JSON config file
`, AppName, Version, AppName)
}

func printValidateHelp() {
	fmt.Println(`Usage: mdcheck validate --input data.json [flags]

Flags:
  --input, -i          Input data file (JSON); bare array or {"data": [...]}
  --schema             Data schema (default from config, ohlcv-1h)
  --max-gap-minutes    Maximum acceptable timestamp gap (default 60)
  --price-outlier-std  Outlier threshold in standard deviations (default 10.0)
  --report, -r         Save the JSON report to a file

Exit status is 0 when the data is valid, 4 when issues invalidate it.`)
}

func printFilterHelp() {
	fmt.Println(`Usage: mdcheck filter --input data.json [flags]

Flags:
  --input, -i        Input data file (JSON)
  --sessions, -s     Comma-separated sessions to keep (Asian, London, NY)
  --transitions      Keep records near session transitions instead
  --minutes-before   Minutes before a transition to keep (default 30)
  --minutes-after    Minutes after a transition to keep (default 30)
  --stats            Also print per-session statistics
  --output, -o       Save filtered data with metadata envelope`)
}

func printFetchHelp() {
	fmt.Println(`Usage: mdcheck fetch --symbols ES.c.0 --start 2024-01-01 [flags]

Flags:
  --symbols, -s     Comma-separated symbol list
  --schema          Data schema (default ohlcv-1h)
  --start           Start date (YYYY-MM-DD)
  --end             End date (YYYY-MM-DD, optional)
  --limit           Maximum number of records
  --dataset         Vendor dataset code (default GLBX.MDP3)
  --output, -o      Save fetched data to a JSON file
  --no-cost-check   Skip the pre-fetch cost estimate`)
}
