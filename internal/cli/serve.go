package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/lingua/internal/entrypoint"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the IPC bridge server",
		Long: `Start the IPC bridge server and run the initialization phases.

The server answers app:* channels immediately; data channels become
available once the phases complete. Stop it with SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts *options) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	return entrypoint.Run(cfg, opts.build.Version)
}
