package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"showrunner/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status and approval HTTP API",
	Long: `Serve a read-mostly HTTP API over the project registry: project status,
gate state, render manifests, and POST endpoints for approving or
rejecting gates from a browser or another machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Studio.Serve.Port
		}

		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		srv := web.NewServer(cfg.Studio.OutputDir, database, port)
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://localhost:%d\n", port)
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (defaults to the configured port)")
}
