package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nconklindev/roas/internal/config"
	"github.com/nconklindev/roas/internal/converter"
	"github.com/nconklindev/roas/internal/logging"
	"github.com/nconklindev/roas/internal/schema"
	"github.com/nconklindev/roas/internal/sheets"
	"github.com/nconklindev/roas/internal/types"
	"github.com/nconklindev/roas/internal/ui"
	"github.com/nconklindev/roas/internal/upload"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	verbose    bool

	sheetName  string
	modeFlag   string
	dryRun     bool
	exportPath string
	force      bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "roas",
		Short: "Publish MCAI and WhatConverts lead exports to the ROAS spreadsheet",
		Long: `roas reads an MCAI or WhatConverts lead export (CSV or XLSX), maps it to the
shared lead columns and writes it to a worksheet of the ROAS spreadsheet.

Run without arguments to open the interactive form.`,
		Version:           fmt.Sprintf("%s\ncommit: %s\nbuilt: %s", version, commit, date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: runInteractive,
	}
	rootCmd.SetVersionTemplate("roas {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	uploadCmd := &cobra.Command{
		Use:   "upload [export.csv|export.xlsx]",
		Short: "Upload one export file to a worksheet",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}
	uploadCmd.Flags().StringVarP(&sheetName, "sheet", "s", "", "Worksheet name (default: default_sheet from config)")
	uploadCmd.Flags().StringVarP(&modeFlag, "mode", "m", string(types.ModeReplace), "Write mode: replace or append")
	uploadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Write to an in-memory spreadsheet instead of Google Sheets")
	uploadCmd.Flags().StringVarP(&exportPath, "export", "o", "", "Also write the normalized table to a local .csv or .xlsx file")

	detectCmd := &cobra.Command{
		Use:   "detect [export.csv|export.xlsx]",
		Short: "Show which provider an export comes from and whether it is complete",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetect,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the roas config file",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file to the --config path",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(initCmd)

	rootCmd.AddCommand(uploadCmd, detectCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}
	logger.Debug("config loaded", zap.String("path", configPath), zap.String("command", cmd.Name()))
	return nil
}

func newBackend(ctx context.Context, useMemory bool) (sheets.Backend, error) {
	if useMemory {
		return sheets.NewMemoryBackend(), nil
	}
	if err := cfg.ValidateRemote(); err != nil {
		return nil, err
	}
	opts, err := sheets.CredentialOptions(cfg.CredentialsFile, cfg.CredentialsJSON)
	if err != nil {
		return nil, err
	}
	return sheets.NewGoogleBackend(ctx, cfg.SpreadsheetID, opts...)
}

func newService(ctx context.Context, useMemory bool) (*upload.Service, error) {
	backend, err := newBackend(ctx, useMemory)
	if err != nil {
		return nil, err
	}
	return upload.NewService(backend, logger, converter.Options{NormalizePhones: cfg.NormalizePhones}), nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context(), false)
	if err != nil {
		return err
	}

	p := tea.NewProgram(ui.InitialModel(svc, cfg.DefaultSheet), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	mode, err := types.ParseWriteMode(modeFlag)
	if err != nil {
		return err
	}
	if sheetName == "" {
		sheetName = cfg.DefaultSheet
	}

	svc, err := newService(cmd.Context(), dryRun)
	if err != nil {
		return err
	}

	result, err := svc.Upload(cmd.Context(), upload.Request{
		InputFile:  args[0],
		Sheet:      sheetName,
		Mode:       mode,
		ExportFile: exportPath,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ %s\n", upload.Message(result, nil))
	fmt.Fprintf(out, "Detected input type: %s export\n", result.Kind)
	if result.FormatErr != nil {
		fmt.Fprintf(out, "⚠ header formatting failed: %v\n", result.FormatErr)
	}
	if dryRun {
		fmt.Fprintln(out, "(dry run: nothing was sent to Google Sheets)")
	}
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	p, err := upload.Inspect(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Input type: %s\n", p.Kind)
	fmt.Fprintf(out, "Rows: %d  Columns: %d\n", len(p.Data.Rows), len(p.Data.Headers))
	if p.HasDates {
		fmt.Fprintf(out, "Dates: %s to %s\n", p.FirstDate.Format("2006-01-02"), p.LastDate.Format("2006-01-02"))
	}

	switch {
	case p.Kind == types.KindUnknown:
		return schema.ErrUnknownFormat
	case len(p.Missing) > 0:
		return &schema.MissingFieldsError{Kind: p.Kind, Missing: p.Missing}
	}
	fmt.Fprintf(out, "Mandatory fields: %s\n", strings.Join(schema.MandatoryFields(p.Kind), ", "))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	written, err := config.WriteDefault(configPath, force)
	if err != nil {
		return err
	}
	logger.Info("config written", zap.String("path", configPath))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Wrote %s\n", configPath)
	if written.SpreadsheetID == "" {
		fmt.Fprintln(out, "Set spreadsheet_id and credentials_file before uploading.")
	}
	return nil
}
