package cli

import (
	"fmt"
	"strings"

	"github.com/existflow/secureplan/internal/roadmap"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates [key]",
	Short: "List roadmap templates or print one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplates,
}

func runTemplates(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p := newPainter(out)

	if len(args) == 1 {
		tpl, ok := roadmap.LookupTemplate(args[0])
		if !ok {
			return fmt.Errorf("unknown template %q", args[0])
		}
		fmt.Fprintln(out, p.header(tpl.Name))
		fmt.Fprintln(out, tpl.Roadmap)
		return nil
	}

	for _, tpl := range roadmap.Templates() {
		lines := strings.Count(tpl.Roadmap, "\n") + 1
		fmt.Fprintf(out, "  %-18s %s %s\n", tpl.Key, tpl.Name, p.dim(fmt.Sprintf("(%d lines)", lines)))
	}
	return nil
}
