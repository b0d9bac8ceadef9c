package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"showrunner/internal/artifact"
	"showrunner/internal/director"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts <project-id>",
	Short: "List a project's artifacts",
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

		typeFlag, _ := cmd.Flags().GetString("type")
		statusFlag, _ := cmd.Flags().GetString("status")
		sceneFlag, _ := cmd.Flags().GetString("scene")

		var arts []*artifact.Artifact
		if typeFlag != "" {
			arts = p.Store().ByType(artifact.Type(typeFlag), artifact.Filter{
				SceneID: sceneFlag,
				Status:  artifact.Status(statusFlag),
			})
		} else {
			arts = filterArtifacts(p.Store().All(), sceneFlag, statusFlag)
		}

		if len(arts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No artifacts.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"ID", "TYPE", "SCENE", "VERSION", "STATUS", "CREATED BY", "FILE"})
		for _, a := range arts {
			t.AppendRow(table.Row{a.ID, a.Type, a.SceneID, a.Version, a.Status, a.CreatedBy, a.FilePath})
		}
		t.Render()
		return nil
	},
}

func filterArtifacts(arts []*artifact.Artifact, sceneID, status string) []*artifact.Artifact {
	if sceneID == "" && status == "" {
		return arts
	}
	var out []*artifact.Artifact
	for _, a := range arts {
		if sceneID != "" && a.SceneID != sceneID {
			continue
		}
		if status != "" && a.Status != artifact.Status(status) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func init() {
	artifactsCmd.Flags().String("type", "", "filter by type (script, evidence_url, screenshot, render_manifest)")
	artifactsCmd.Flags().String("status", "", "filter by status (draft, locked)")
	artifactsCmd.Flags().String("scene", "", "filter by scene id")
}
