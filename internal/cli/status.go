package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"showrunner/internal/artifact"
	"showrunner/internal/director"
	"showrunner/internal/gate"
	"showrunner/internal/project"
)

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show project status (all projects when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return listProjects(cmd, cfg.Studio.OutputDir)
		}

		p, closer, err := openProject(cfg, args[0], director.Brief{}, false)
		if err != nil {
			return err
		}
		defer closer()

		printStatus(cmd, p.Status())
		return nil
	},
}

func listProjects(cmd *cobra.Command, outputDir string) error {
	infos, err := project.List(outputDir)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects found. Create one with 'showrunner new'.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"PROJECT", "STATE", "ARTIFACTS", "PENDING GATES", "UPDATED"})
	for _, info := range infos {
		t.AppendRow(table.Row{
			info.ProjectID,
			info.State,
			info.TotalArtifacts,
			strings.Join(info.PendingGates, ", "),
			info.UpdatedAt,
		})
	}
	t.Render()
	return nil
}

// printStatus renders a single project's status snapshot.
func printStatus(cmd *cobra.Command, status *director.Status) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Project:  %s\n", status.ProjectID)
	fmt.Fprintf(out, "State:    %s\n", status.State)
	if status.Message != "" {
		fmt.Fprintf(out, "Message:  %s\n", status.Message)
	}
	if status.Error {
		fmt.Fprintln(out, "Result:   ERROR")
	}
	if status.PendingGate != "" {
		fmt.Fprintf(out, "Waiting:  %s (approve with 'showrunner approve %s %s')\n",
			status.PendingGate, status.ProjectID, strings.TrimPrefix(status.PendingGate, "gate_"))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Artifacts: %d total", status.StoreSummary.TotalArtifacts)
	if status.StoreSummary.RenderReady {
		fmt.Fprint(out, " (render ready)")
	}
	fmt.Fprintln(out)
	for _, typ := range []artifact.Type{
		artifact.TypeScript, artifact.TypeEvidenceURL,
		artifact.TypeScreenshot, artifact.TypeRenderManifest,
	} {
		counts, ok := status.StoreSummary.ByType[typ]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "  %-16s %d draft, %d locked\n", typ, counts.Draft, counts.Locked)
	}
	for _, missing := range status.StoreSummary.MissingForRender {
		fmt.Fprintf(out, "  missing: %s\n", missing)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Gates:")
	for _, g := range sortedGates(status.GatesSummary.Gates) {
		fmt.Fprintf(out, "  %-14s %s\n", g.ID, g.Status)
	}

	if len(status.Tasks) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Tasks: %d dispatched\n", len(status.Tasks))
		for _, task := range status.Tasks {
			line := fmt.Sprintf("  %-18s %-20s %s", task.Agent, task.Action, task.Status)
			if task.SceneID != "" {
				line += " (" + task.SceneID + ")"
			}
			if task.Error != "" {
				line += ": " + task.Error
			}
			fmt.Fprintln(out, line)
		}
	}
}

// sortedGates orders gates by pipeline stage.
func sortedGates(gates map[string]*gate.Gate) []*gate.Gate {
	out := make([]*gate.Gate, 0, len(gates))
	for _, g := range gates {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return stageRank(out[i].Stage) < stageRank(out[j].Stage)
	})
	return out
}

func stageRank(s string) int {
	for i, stage := range gate.StageOrder {
		if stage == s {
			return i
		}
	}
	return len(gate.StageOrder)
}
