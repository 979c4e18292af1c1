package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pocketpal/internal/memory"
	"pocketpal/internal/model"
	"pocketpal/internal/organize"
)

func init() {
	cmd := &cobra.Command{
		Use:   "organize <persona>",
		Short: "Summarize a persona's temp logs into a core memory",
		Long:  "Summarize the persona's buffered dialogue into a scored core memory using the configured chat API, then clear the buffer. The persona may be given by id or name.",
		Args:  cobra.ExactArgs(1),
		Run:   runOrganize,
	}

	RootCmd.AddCommand(cmd)
}

func runOrganize(cmd *cobra.Command, args []string) {
	svc, kv, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer kv.Close()

	doc := svc.Load()
	persona, ok := findPersona(doc.Personas, args[0])
	if !ok {
		exitErr("organize", fmt.Errorf("no persona %q", args[0]))
	}

	eng := memory.New()
	eng.Set(doc.Memories)

	o := organize.New(organize.NewOpenAI(doc.Config.API), nil)
	mem, err := o.Run(cmd.Context(), eng, persona.ID, persona.Name, organize.Options{
		Model:       doc.Config.GPT.Model,
		MaxTokens:   doc.Config.GPT.MaxTokens,
		Temperature: doc.Config.GPT.Temperature,
	})
	if err != nil {
		exitErr("organize", err)
	}

	doc.Memories = eng.Snapshot()
	if !svc.Save(doc) {
		exitErr("organize", fmt.Errorf("save failed"))
	}

	b, _ := json.MarshalIndent(mem, "", "  ")
	fmt.Println(string(b))
}

func findPersona(personas []model.Persona, ref string) (model.Persona, bool) {
	for _, p := range personas {
		if p.ID == ref || strings.EqualFold(p.Name, ref) {
			return p, true
		}
	}
	return model.Persona{}, false
}
