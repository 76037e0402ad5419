// Package cli implements seatctl, the operator command line.
package cli

import (
    "context"
    "fmt"
    "io"

    "github.com/spf13/cobra"

    "github.com/iliyamo/seating-core/internal/app"
)

// CLI carries what the commands need.  Open is called once per command
// that touches storage.
type CLI struct {
    Open   func(ctx context.Context) (*app.App, error)
    Secret string
    Out    io.Writer
}

// Root builds the command tree.
func (c *CLI) Root() *cobra.Command {
    root := &cobra.Command{
        Use:           "seatctl",
        Short:         "Seating core operator tool",
        Long:          `Run hold sweeps, preview and apply repricing, inspect seat maps and mint dev tokens.`,
        SilenceUsage: true,
    }
    root.SetOut(c.Out)
    root.AddCommand(c.sweepCmd(), c.repriceCmd(), c.seatsCmd(), c.tokenCmd())
    return root
}

// withApp opens the app for one command and closes it afterwards.
func (c *CLI) withApp(ctx context.Context, fn func(*app.App) error) error {
    a, err := c.Open(ctx)
    if err != nil {
        return fmt.Errorf("open: %w", err)
    }
    defer a.Close()
    return fn(a)
}

func (c *CLI) sweepCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "sweep",
        Short: "Release every lapsed hold once",
        RunE: func(cmd *cobra.Command, args []string) error {
            return c.withApp(cmd.Context(), func(a *app.App) error {
                n, err := a.Holds.Sweep(cmd.Context())
                if err != nil {
                    return err
                }
                fmt.Fprintf(c.Out, "released %d seats\n", n)
                return nil
            })
        },
    }
}
