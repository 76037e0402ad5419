package cli

import (
    "time"

    "github.com/jedib0t/go-pretty/v6/table"
    "github.com/spf13/cobra"

    "github.com/iliyamo/seating-core/internal/app"
    "github.com/iliyamo/seating-core/internal/model"
    "github.com/iliyamo/seating-core/internal/utils"
)

var statusColumns = []model.SeatStatus{model.SeatAvailable, model.SeatHeld, model.SeatSold, model.SeatBlocked, model.SeatDisabled}

// seatsCmd prints seat counts per section and status.
func (c *CLI) seatsCmd() *cobra.Command {
    var seating string
    cmd := &cobra.Command{
        Use:   "seats",
        Short: "Summarize seat status per section",
        RunE: func(cmd *cobra.Command, args []string) error {
            return c.withApp(cmd.Context(), func(a *app.App) error {
                seats, err := a.Inventory.List(cmd.Context(), seating)
                if err != nil {
                    return err
                }
                var order []string
                counts := map[string]map[model.SeatStatus]int{}
                for _, s := range seats {
                    if counts[s.SectionID] == nil {
                        counts[s.SectionID] = map[model.SeatStatus]int{}
                        order = append(order, s.SectionID)
                    }
                    counts[s.SectionID][s.Status]++
                }

                t := table.NewWriter()
                t.SetOutputMirror(c.Out)
                header := table.Row{"Section"}
                for _, st := range statusColumns {
                    header = append(header, string(st))
                }
                t.AppendHeader(header)
                for _, sec := range order {
                    row := table.Row{sec}
                    for _, st := range statusColumns {
                        row = append(row, counts[sec][st])
                    }
                    t.AppendRow(row)
                }
                t.Render()
                return nil
            })
        },
    }
    cmd.Flags().StringVar(&seating, "seating", "", "event seating id")
    _ = cmd.MarkFlagRequired("seating")
    return cmd
}

func (c *CLI) tokenCmd() *cobra.Command {
    var (
        sub  string
        role string
        ttl  time.Duration
    )
    cmd := &cobra.Command{
        Use:   "token",
        Short: "Mint a development access token",
        RunE: func(cmd *cobra.Command, args []string) error {
            tok, err := utils.NewAccessToken(c.Secret, sub, role, ttl)
            if err != nil {
                return err
            }
            cmd.Println(tok.Token)
            return nil
        },
    }
    cmd.Flags().StringVar(&sub, "sub", "", "subject (holder id for customers)")
    cmd.Flags().StringVar(&role, "role", utils.RoleCustomer, "CUSTOMER, OWNER or SERVICE")
    cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
    _ = cmd.MarkFlagRequired("sub")
    return cmd
}
