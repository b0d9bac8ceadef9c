package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"showrunner/internal/director"
)

var gatesCmd = &cobra.Command{
	Use:   "gates <project-id>",
	Short: "Show a project's approval gates and their audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, closer, err := openProject(cfg, args[0], director.Brief{}, false)
		if err != nil {
			return err
		}
		defer closer()

		out := cmd.OutOrStdout()

		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"GATE", "STAGE", "STATUS", "DECISIONS"})
		for _, g := range p.Gates().All() {
			t.AppendRow(table.Row{g.ID, g.Stage, g.Status, len(g.Events)})
		}
		t.Render()

		events, _ := cmd.Flags().GetBool("events")
		if !events {
			return nil
		}

		for _, g := range p.Gates().All() {
			if len(g.Events) == 0 {
				continue
			}
			fmt.Fprintf(out, "\n%s (%s):\n", g.ID, g.Name)
			for _, ev := range g.Events {
				fmt.Fprintf(out, "  %s  %-13s by %s", ev.DecidedAt, ev.Status, ev.DecidedBy)
				if ev.Feedback != "" {
					fmt.Fprintf(out, "  feedback: %s", ev.Feedback)
				}
				if ev.RejectionReason != "" {
					fmt.Fprintf(out, "  reason: %s", ev.RejectionReason)
				}
				if len(ev.ArtifactIDs) > 0 {
					fmt.Fprintf(out, "  artifacts: %s", strings.Join(ev.ArtifactIDs, ", "))
				}
				fmt.Fprintln(out)
			}
		}
		return nil
	},
}

func init() {
	gatesCmd.Flags().Bool("events", false, "include the full decision history per gate")
}
