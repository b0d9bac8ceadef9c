package cli

import (
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"showrunner/internal/director"
)

// currentActor returns the --by flag value, falling back to the OS username.
func currentActor(cmd *cobra.Command) string {
	by, _ := cmd.Flags().GetString("by")
	if by != "" {
		return by
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

var approveCmd = &cobra.Command{
	Use:   "approve <project-id> <gate>",
	Short: "Approve a pending gate",
	Long: `Approve a pending gate. The decision is recorded in the audit trail;
the artifacts under review are locked the next time the pipeline is resumed.

Gates: script, evidence, capture, render.`,
	Args: cobra.ExactArgs(2),
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

		feedback, _ := cmd.Flags().GetString("feedback")
		ev, err := p.Approve(normalizeGateID(args[1]), currentActor(cmd), feedback)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Gate %s %s by %s\n", ev.GateID, ev.Status, ev.DecidedBy)

		if resume, _ := cmd.Flags().GetBool("resume"); resume {
			status, err := p.Resume(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd, status)
		}
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <project-id> <gate>",
	Short: "Reject a pending gate (reason required)",
	Args:  cobra.ExactArgs(2),
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

		reason, _ := cmd.Flags().GetString("reason")
		ev, err := p.Reject(normalizeGateID(args[1]), currentActor(cmd), reason)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Gate %s rejected by %s: %s\n", ev.GateID, ev.DecidedBy, ev.RejectionReason)
		fmt.Fprintln(cmd.OutOrStdout(), "Draft artifacts are kept for inspection; use 'showrunner retry' to regenerate.")
		return nil
	},
}

func init() {
	approveCmd.Flags().String("by", "", "who is approving (defaults to OS username)")
	approveCmd.Flags().String("feedback", "", "optional reviewer feedback")
	approveCmd.Flags().Bool("resume", false, "resume the pipeline after approving")
	rejectCmd.Flags().String("by", "", "who is rejecting (defaults to OS username)")
	rejectCmd.Flags().String("reason", "", "why the stage is rejected (required)")
}
