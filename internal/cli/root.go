// Package cli implements the pocketpal CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pocketpal/internal/data"
	"pocketpal/internal/storage"
)

var dbPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "pocketpal",
	Short: "AI persona chat data store",
	Long:  "Manage the unified pocketpal document: export, import, migrate legacy bundles, organize memories. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $POCKETPAL_DB or ~/.pocketpal/data.db)")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("POCKETPAL_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pocketpal", "data.db")
}

func openService() (*data.Service, *storage.SQLite, error) {
	kv, err := storage.NewSQLite(getDBPath(), storage.DefaultQuota)
	if err != nil {
		return nil, nil, err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return data.NewService(kv, log), kv, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
