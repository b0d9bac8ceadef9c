package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"showrunner/internal/artifact"
	"showrunner/internal/director"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest <project-id>",
	Short: "Print the render manifest for a render-ready project",
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

		m, err := p.RenderManifest()
		if err != nil {
			if errors.Is(err, artifact.ErrRenderNotReady) {
				_, missing := p.Store().RenderReady()
				fmt.Fprintln(cmd.ErrOrStderr(), "Project is not render ready:")
				for _, item := range missing {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", item)
				}
			}
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	},
}
