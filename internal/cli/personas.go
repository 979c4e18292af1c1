package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List personas",
		Run:   runPersonas,
	}

	RootCmd.AddCommand(cmd)
}

func runPersonas(cmd *cobra.Command, args []string) {
	svc, kv, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer kv.Close()

	doc := svc.Load()
	for _, p := range doc.Personas {
		marker := " "
		if doc.ActivePersonaID != nil && *doc.ActivePersonaID == p.ID {
			marker = "*"
		}
		pin := ""
		if p.Pinned {
			pin = " [pinned]"
		}
		fmt.Printf("%s %-24s %s  %d messages%s\n", marker, p.ID, p.Name, len(p.Messages), pin)
	}
}
