package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/existflow/secureplan/internal/db"
	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/workflow"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list [project-id]",
	Aliases: []string{"ls"},
	Short:   "List a user's projects or show one board",
	Long: `List projects from the configured database.

Examples:
  secureplan list --user alice@example.com
  secureplan list --user alice@example.com --all --search web
  secureplan list --user alice@example.com 3f2a...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var (
	listUser   string
	listAll    bool
	listSearch string
)

func init() {
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "Email of the user whose projects to show")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include completed projects")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Filter project names")
	_ = listCmd.MarkFlagRequired("user")
}

func runList(cmd *cobra.Command, args []string) error {
	dbConn, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = dbConn.Close()
	}()

	ctx := context.Background()
	user, err := dbConn.GetUserByEmail(ctx, listUser)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", listUser, err)
	}

	engine := workflow.NewEngine(dbConn, nil)
	out := cmd.OutOrStdout()
	p := newPainter(out)

	if len(args) == 1 {
		board, err := engine.Board(ctx, args[0], user.Actor())
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		printBoard(out, p, board)
		return nil
	}

	filter := workflow.ProjectFilter{Status: workflow.FilterActive, Search: listSearch}
	if listAll {
		filter.Status = workflow.FilterAll
	}
	projects, err := engine.ListProjects(ctx, user.Actor(), filter)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}

	for _, project := range projects {
		tasks, err := dbConn.ReadTasks(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("failed to read tasks: %w", err)
		}
		printProjectLine(out, p, project, workflow.Progress(tasks))
	}
	return nil
}

func printProjectLine(w io.Writer, p painter, project model.Project, progress int) {
	icon := "[ ]"
	if project.IsCompleted() {
		icon = "[x]"
	}
	shortID := project.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	fmt.Fprintf(w, "  %s  %-8s  %-40s  %3d%%  %s\n", icon, shortID, project.Name, progress,
		p.dim(project.CreatedAt.Format("Jan 2")))
}

func printBoard(w io.Writer, p painter, board workflow.Board) {
	fmt.Fprintf(w, "\n%s\n", p.header(fmt.Sprintf("📁 %s (%d%%)", board.Project.Name, board.Progress)))
	fmt.Fprintln(w, strings.Repeat("─", 60))

	for _, status := range model.AllStatuses() {
		column := board.Column(status)
		fmt.Fprintf(w, "%s (%d)\n", status.Display(), len(column))
		for _, t := range column {
			fmt.Fprintf(w, "    %-40s  @%-12s %s\n", t.Title, t.AssigneeName, p.priority(t.Priority))
		}
	}
	if board.CanComplete {
		fmt.Fprintln(w, p.header("All tasks done, the project can be completed."))
	}
	fmt.Fprintln(w)
}
