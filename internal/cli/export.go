package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the document as JSON",
		Long:  "Export the full document as pretty-printed JSON. API keys are redacted unless --include-keys is set.",
		Run:   runExport,
	}

	cmd.Flags().Bool("include-keys", false, "Keep API keys in the output")
	cmd.Flags().StringP("out", "o", "", "Write to file; \"auto\" picks a dated backup name")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	includeKeys, _ := cmd.Flags().GetBool("include-keys")
	out, _ := cmd.Flags().GetString("out")

	svc, kv, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer kv.Close()

	text := svc.ExportJSON(includeKeys)

	if out == "auto" {
		out = svc.ExportFilename()
	}
	if out == "" {
		fmt.Println(text)
		return
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		exitErr("export", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", out)
}
