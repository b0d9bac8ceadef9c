package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"showrunner/internal/director"
)

var newCmd = &cobra.Command{
	Use:   "new <project-id>",
	Short: "Create a new production project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		title, _ := cmd.Flags().GetString("title")
		topic, _ := cmd.Flags().GetString("topic")
		notes, _ := cmd.Flags().GetString("notes")
		if topic == "" {
			return fmt.Errorf("--topic is required")
		}

		brief := director.Brief{Title: title, Topic: topic, Notes: notes}
		p, closer, err := openProject(cfg, args[0], brief, false)
		if err != nil {
			return err
		}
		defer closer()

		fmt.Fprintf(cmd.OutOrStdout(), "Created project %s in %s\n", p.ID(), p.Dir())
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <project-id>",
	Short: "Drive the pipeline until it completes or suspends at a gate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, closer, err := openProject(cfg, args[0], director.Brief{}, true)
		if err != nil {
			return err
		}
		defer closer()

		auto, _ := cmd.Flags().GetBool("auto")
		var status *director.Status
		if auto {
			status, err = p.RunWithAutoApprove(cmd.Context())
		} else {
			status, err = p.Run(cmd.Context())
		}
		if err != nil {
			return err
		}

		printStatus(cmd, status)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <project-id>",
	Short: "Resume a suspended pipeline from its persisted phase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, closer, err := openProject(cfg, args[0], director.Brief{}, true)
		if err != nil {
			return err
		}
		defer closer()

		status, err := p.Resume(cmd.Context())
		if err != nil {
			return err
		}
		printStatus(cmd, status)
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <project-id>",
	Short: "Re-arm a rejected phase and regenerate its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, closer, err := openProject(cfg, args[0], director.Brief{}, true)
		if err != nil {
			return err
		}
		defer closer()

		if err := p.RetryPhase(); err != nil {
			return err
		}
		status, err := p.Resume(cmd.Context())
		if err != nil {
			return err
		}
		printStatus(cmd, status)
		return nil
	},
}

func init() {
	newCmd.Flags().String("title", "", "working title for the production")
	newCmd.Flags().String("topic", "", "topic handed to the script generator (required)")
	newCmd.Flags().String("notes", "", "free-form notes for the script generator")
	runCmd.Flags().Bool("auto", false, "auto-approve every gate (decisions still audited)")
}
