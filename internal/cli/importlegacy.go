package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pocketpal/internal/bundle"
	"pocketpal/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import-legacy <path>",
		Short: "Import a legacy desktop bundle",
		Long:  "Import a legacy desktop export: a zip archive or a directory holding config.py, prompts/*.md and corememory/ files.",
		Args:  cobra.ExactArgs(1),
		Run:   runImportLegacy,
	}

	cmd.Flags().Bool("merge", false, "Merge into the existing document instead of replacing it")
	cmd.Flags().Bool("merge-config", false, "With --merge, lay the bundle's config keys over the current settings")
	cmd.Flags().Bool("skip-config", false, "Keep the current settings")
	cmd.Flags().Bool("skip-memories", false, "Skip core memory files")

	RootCmd.AddCommand(cmd)
}

func runImportLegacy(cmd *cobra.Command, args []string) {
	path := args[0]
	merge, _ := cmd.Flags().GetBool("merge")
	mergeConfig, _ := cmd.Flags().GetBool("merge-config")
	skipConfig, _ := cmd.Flags().GetBool("skip-config")
	skipMemories, _ := cmd.Flags().GetBool("skip-memories")

	svc, kv, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer kv.Close()

	im := bundle.NewImporter(svc, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	opts := bundle.Options{Merge: merge, MergeConfig: mergeConfig, SkipConfig: skipConfig, SkipMemories: skipMemories}

	info, err := os.Stat(path)
	if err != nil {
		exitErr("import-legacy", err)
	}

	var result model.ImportResult
	if info.IsDir() {
		result = im.ImportDir(path, opts)
	} else {
		result = im.ImportZip(path, opts)
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
	if !result.Success {
		os.Exit(1)
	}
}
