package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kmullins/devserve/internal/config"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var manifest string

	ctx := &context{manifest: &manifest}
	root := &cobra.Command{
		Use:   "devserve",
		Short: "Supervise a front-end dev server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, ctx)
		},
	}

	root.PersistentFlags().
		StringVarP(&manifest, "file", "f", "devserve.yaml", "Path to the devserve manifest")

	root.AddCommand(newConfigCmd())
	root.AddCommand(newDoctorCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint. An interrupt or termination signal
// cancels the command context; the run path reacts by stopping the child
// and exiting 0, so the signal path never reports failure.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		var coded *exitCodeError
		if errors.As(err, &coded) {
			if coded.message != "" {
				fmt.Fprintln(os.Stderr, coded.message)
			}
			os.Exit(coded.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	manifest *string
}

func (c *context) loadConfig() (*config.File, error) {
	return config.LoadOrDefault(*c.manifest)
}

// exitCodeError carries a specific process exit code through cobra. The
// run path uses it to propagate the child's own exit code; diagnostics are
// printed at the point of failure, so message is usually empty.
type exitCodeError struct {
	code    int
	message string
}

func (e *exitCodeError) Error() string {
	if e.message != "" {
		return e.message
	}
	return fmt.Sprintf("exit status %d", e.code)
}
