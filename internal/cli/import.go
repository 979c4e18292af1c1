package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pocketpal/internal/data"
	"pocketpal/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a document from JSON",
		Long:  "Import a document exported by this tool (file or stdin). The default replaces the stored document; --merge folds in new personas and messages instead.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	cmd.Flags().Bool("merge", false, "Merge into the existing document instead of replacing it")
	cmd.Flags().Bool("merge-config", false, "With --merge, also take the imported settings")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var text []byte
	var err error
	if len(args) > 0 {
		text, err = os.ReadFile(args[0])
	} else {
		text, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	merge, _ := cmd.Flags().GetBool("merge")
	mergeConfig, _ := cmd.Flags().GetBool("merge-config")

	svc, kv, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer kv.Close()

	var result model.ImportResult
	if merge {
		result = svc.ImportJSONMerge(string(text), data.MergeOptions{Config: mergeConfig})
	} else {
		result = svc.ImportJSON(string(text))
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
	if !result.Success {
		os.Exit(1)
	}
}
