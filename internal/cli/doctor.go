package cli

import (
	"github.com/spf13/cobra"

	"github.com/kmullins/devserve/internal/cliutil"
	"github.com/kmullins/devserve/internal/doctor"
)

func newDoctorCmd(cliCtx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the dev server environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliCtx.loadConfig()
			if err != nil {
				return err
			}

			out := cliutil.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			failed := false
			for _, res := range doctor.Run(cmd.Context(), cfg) {
				switch {
				case res.Err != nil:
					failed = true
					out.Errorf("fail %s: %v", res.Name, res.Err)
				case res.Detail != "":
					out.Successf("ok   %s (%s)", res.Name, res.Detail)
				default:
					out.Successf("ok   %s", res.Name)
				}
			}
			if failed {
				return &exitCodeError{code: 1}
			}
			return nil
		},
	}
	return cmd
}
