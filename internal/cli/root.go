// Package cli implements the sheetdb command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys. Each is also a flag and a SHEETDB_* environment variable.
const (
	keyBackend       = "backend"
	keySpreadsheetID = "spreadsheet-id"
	keyCredentials   = "credentials"
	keyExcelFile     = "excel-file"
	keyDSN           = "dsn"
	keyRegistry      = "registry"
	keyCacheTTL      = "cache-ttl"
	keyLogLevel      = "log-level"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	jsonOut bool
	logger  *slog.Logger
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Each call has its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "sheetdb",
		Short: "Inspect and edit factory tracker tables",
		Long: `sheetdb reads and writes the factory workflow tables stored in a
Google Sheets spreadsheet, a local Excel workbook, or a SQL database.

Quick start:
  sheetdb verify                        Create missing worksheets and repair headers
  sheetdb list tasks --where status=pending
  sheetdb set tasks <task-id> status=done
  sheetdb migrate --backend sqlite --dsn tracker.db`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./sheetdb.yaml)")
	flags.BoolVar(&a.jsonOut, "json", false, "output as JSON")
	flags.String(keyBackend, "sheets", "backend: sheets, excel, sqlite or postgres")
	flags.String(keySpreadsheetID, "", "Google Sheets spreadsheet ID")
	flags.String(keyCredentials, "", "service account JSON key file (default: application default credentials)")
	flags.String(keyExcelFile, "sheetdb.xlsx", "workbook path for the excel backend")
	flags.String(keyDSN, "", "database file (sqlite) or connection string (postgres)")
	flags.String(keyRegistry, "", "YAML file with extra or replacement table schemas")
	flags.Duration(keyCacheTTL, 0, "table cache lifetime for sheet backends")
	flags.String(keyLogLevel, "warn", "log level: debug, info, warn or error")
	_ = a.v.BindPFlags(flags)

	cmd.AddCommand(newVerifyCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newGetCmd(a))
	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newSetCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	return cmd
}

// init loads .env, the config file and the environment, then sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("sheetdb")
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix("SHEETDB")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString(keyLogLevel))); err != nil {
		return fmt.Errorf("invalid log level %q", a.v.GetString(keyLogLevel))
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}
