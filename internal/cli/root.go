// Package cli implements the lingua command line: the bridge server plus a
// few inspection commands for the database, init phases and IPC contract.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/lingua/internal/config"
)

// Build information passed down from main.
type BuildInfo struct {
	Version string
	Commit  string
}

type options struct {
	build   BuildInfo
	cfgFile string
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the server.
func NewRootCommand(build BuildInfo) *cobra.Command {
	opts := &options{build: build}

	root := &cobra.Command{
		Use:   "lingua",
		Short: "Lingua - language learning backend",
		Long: `Lingua serves the language learning app: media, recordings, transcriptions,
conversations and dictionary lookups, exposed to the renderer over the IPC bridge.

Configuration comes from environment variables and, optionally, a config file.

Use "lingua [command] --help" for more information about a command.`,
		Version:       build.Version + " (" + build.Commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (yaml, json or toml)")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newPhasesCommand(opts),
		newChannelsCommand(opts),
		newContractCommand(opts),
	)
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// Execute runs the command line and returns the first error.
func Execute(build BuildInfo) error {
	return NewRootCommand(build).Execute()
}

func (o *options) config() (*config.Config, error) {
	return config.Load(o.cfgFile)
}
