package cli

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/lingua/internal/entrypoint"
)

func newPhasesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "Show the initialization plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			app, err := entrypoint.New(cfg, nil, opts.build.Version)
			if err != nil {
				return err
			}
			defer app.Shutdown(cmd.Context())

			plan, err := app.Phases().Plan()
			if err != nil {
				return err
			}
			out := NewTableData("#", "PHASE", "DEPENDS ON", "TIMEOUT", "OPTIONAL")
			for i, p := range plan {
				timeout := "default (" + cfg.Init.PhaseTimeout.String() + ")"
				if p.Timeout > 0 {
					timeout = p.Timeout.String()
				}
				deps := strings.Join(p.DependsOn, ", ")
				if deps == "" {
					deps = "-"
				}
				out.AddRow(strconv.Itoa(i+1), p.Name, deps, timeout, strconv.FormatBool(p.Optional))
			}
			return PrintTable(cmd.OutOrStdout(), out)
		},
	}
}

func newChannelsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the IPC channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			reg, err := entrypoint.Describe(cfg, opts.build.Version)
			if err != nil {
				return err
			}
			out := NewTableData("CHANNEL", "TIMEOUT", "DESCRIPTION")
			for _, ch := range reg.Channels() {
				out.AddRow(ch.Channel, ch.Timeout, ch.Description)
			}
			return PrintTable(cmd.OutOrStdout(), out)
		},
	}
}

func newContractCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "contract",
		Short: "Print the IPC contract as JSON schema",
		Long: `Print every IPC channel with the JSON schema of its request and
response, plus the error envelope. The renderer generates its typed
client from this output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			reg, err := entrypoint.Describe(cfg, opts.build.Version)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reg.Contract(opts.build.Version))
		},
	}
}
