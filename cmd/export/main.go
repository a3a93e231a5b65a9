// Command export writes tracking reports and ClickDrop import workbooks for a
// configured client.
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"labelops/internal/config"
	"labelops/internal/export"
)

const usage = `usage: export <command> [flags]

commands:
  tracking    write Clients/<client>/TRACKING_OUT/tracking_<date>_<batch>.csv
  clickdrop   write a ClickDrop bulk-import .xlsx from CSV rows
`

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "export").Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "tracking":
		err = runTracking(os.Args[2:])
	case "clickdrop":
		err = runClickDrop(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("export failed")
	}
}

func runTracking(args []string) error {
	fs := flag.NewFlagSet("tracking", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "path to the YAML config file")
	clientID := fs.String("client", "", "client id, e.g. client_01")
	input := fs.String("input", "-", "CSV with order_reference,postcode,service,tracking_number,created_at (- for stdin)")
	date := fs.String("date", "", "report date YYYY-MM-DD (default today, UTC)")
	batch := fs.String("batch", "", "batch id (default random 8 hex chars)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	client := strings.ToLower(strings.TrimSpace(*clientID))
	if !cfg.Telegram.HasClient(client) {
		return fmt.Errorf("%w: client %q is not configured", config.ErrInvalidField, *clientID)
	}

	reportDate := time.Now().UTC()
	if *date != "" {
		if reportDate, err = time.Parse("2006-01-02", *date); err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
	}

	in, closeIn, err := openInput(*input)
	if err != nil {
		return err
	}
	defer closeIn()
	records, err := export.ReadTrackingRecords(in)
	if err != nil {
		return err
	}

	path, err := export.ExportTrackingReport(cfg.BaseDir, client, records, reportDate, *batch)
	if err != nil {
		return err
	}
	log.Info().Str("client_id", client).Int("records", len(records)).Str("path", path).Msg("tracking report written")
	return nil
}

func runClickDrop(args []string) error {
	fs := flag.NewFlagSet("clickdrop", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "path to the YAML config file")
	input := fs.String("input", "-", "CSV rows to place on the first sheet (- for stdin)")
	output := fs.StringP("output", "o", "", "destination .xlsx path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		return errors.New("--output is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ClickDrop.Validate(); err != nil {
		return err
	}

	in, closeIn, err := openInput(*input)
	if err != nil {
		return err
	}
	defer closeIn()
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}

	if err := export.WriteClickDropImportXLSX(*output, rows); err != nil {
		return err
	}
	log.Info().
		Str("api_base_url", cfg.ClickDrop.APIBaseURL).
		Durs("retry_schedule", cfg.ClickDrop.RetrySchedule()).
		Int("rows", len(rows)).
		Str("path", *output).
		Msg("clickdrop import written")
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
