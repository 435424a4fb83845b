package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/roadmap"
	"github.com/existflow/secureplan/internal/workflow"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Preview how a roadmap will be split into tasks",
	Long: `Parse a roadmap file (or stdin with "-") and print the resulting tasks
without storing anything. Team members are matched by @name mentions.

Examples:
  secureplan parse plan.txt --member alice --member bob
  secureplan parse --template pentest_web --owner lead
  cat plan.txt | secureplan parse - --name "Q3 audit"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

var (
	parseName     string
	parseOwner    string
	parseMembers  []string
	parseTemplate string
)

func init() {
	parseCmd.Flags().StringVarP(&parseName, "name", "n", "Preview", "Project name to validate")
	parseCmd.Flags().StringVarP(&parseOwner, "owner", "o", "", "Project owner (default $USER)")
	parseCmd.Flags().StringArrayVarP(&parseMembers, "member", "m", nil, "Team member display name (repeatable)")
	parseCmd.Flags().StringVarP(&parseTemplate, "template", "t", "", "Use a built-in template instead of a file")
}

func runParse(cmd *cobra.Command, args []string) error {
	text, err := readRoadmap(cmd.InOrStdin(), args, parseTemplate)
	if err != nil {
		return err
	}

	owner := parseOwner
	if owner == "" {
		owner = os.Getenv("USER")
	}
	if owner == "" {
		owner = "owner"
	}
	roster := buildRoster(owner, parseMembers)

	tasks, err := roadmap.ValidateSubmission(parseName, text, roster, time.Now())
	out := cmd.OutOrStdout()
	p := newPainter(out)
	if err != nil {
		fmt.Fprintln(out, p.err("✗ "+err.Error()))
		return err
	}

	renderPreview(out, p, parseName, tasks)
	return nil
}

// readRoadmap loads the roadmap from a template, a file, or stdin ("-")
func readRoadmap(stdin io.Reader, args []string, template string) (string, error) {
	if template != "" {
		tpl, ok := roadmap.LookupTemplate(template)
		if !ok {
			return "", fmt.Errorf("unknown template %q (see 'secureplan templates')", template)
		}
		return tpl.Roadmap, nil
	}
	if len(args) == 0 {
		return "", errors.New("a roadmap file, \"-\" for stdin, or --template is required")
	}

	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read roadmap: %w", err)
	}
	return string(data), nil
}

// buildRoster turns display names into roster entries keyed by name, owner last
func buildRoster(owner string, members []string) []model.TeamMember {
	team := make([]model.TeamMember, 0, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m != "" {
			team = append(team, model.TeamMember{ID: m, DisplayName: m})
		}
	}
	return workflow.Roster(model.Actor{ID: owner, DisplayName: owner}, team)
}

func renderPreview(w io.Writer, p painter, name string, tasks []model.Task) {
	fmt.Fprintf(w, "\n%s\n", p.header(fmt.Sprintf("📋 %s (%d tasks)", name, len(tasks))))
	fmt.Fprintln(w, strings.Repeat("─", 72))

	for i, t := range tasks {
		title := t.Title
		if n := []rune(title); len(n) > 40 {
			title = string(n[:37]) + "..."
		}
		tags := ""
		if len(t.Tags) > 0 {
			tags = p.dim("#" + strings.Join(t.Tags, " #"))
		}
		fmt.Fprintf(w, "  %2d  %-40s  %-12s  %s  %s\n", i+1, title, "@"+t.AssigneeName, p.priority(t.Priority), tags)
	}
	fmt.Fprintln(w)
}
