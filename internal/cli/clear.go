package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset the document to defaults",
		Long:  "Delete the stored document and any legacy slots, then write a fresh default document. Asks for confirmation unless --yes.",
		Run:   runClear,
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		fmt.Fprint(os.Stderr, "This erases all personas, messages and memories. Continue? [y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(line), "y") {
			fmt.Fprintln(os.Stderr, "aborted")
			return
		}
	}

	svc, kv, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer kv.Close()

	svc.ClearAll()
	fmt.Println(`{"ok":true}`)
}
