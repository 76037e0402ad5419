package cli

import (
    "fmt"

    "github.com/jedib0t/go-pretty/v6/table"
    "github.com/spf13/cobra"

    "github.com/iliyamo/seating-core/internal/app"
    "github.com/iliyamo/seating-core/internal/pricing"
)

type repriceFlags struct {
    seating string
    scope   string
    ref     string
    kind    string
    ttype   string
    amount  int64
    percent float64
    floor   int64
}

func (f *repriceFlags) rule() pricing.Rule {
    return pricing.Rule{
        Kind:         pricing.RuleKind(f.kind),
        TicketTypeID: f.ttype,
        AmountCents:  f.amount,
        Percent:      f.percent,
        FloorCents:   f.floor,
    }
}

func (c *CLI) repriceCmd() *cobra.Command {
    f := &repriceFlags{}
    cmd := &cobra.Command{
        Use:   "reprice",
        Short: "Preview or apply a repricing rule",
    }
    preview := &cobra.Command{
        Use:   "preview",
        Short: "Show old and new prices without storing anything",
        RunE: func(cmd *cobra.Command, args []string) error {
            return c.withApp(cmd.Context(), func(a *app.App) error {
                changes, err := a.Pricing.PreviewRepricing(cmd.Context(), f.seating, pricing.Scope(f.scope), f.ref, f.rule())
                if err != nil {
                    return err
                }
                c.renderChanges(changes)
                return nil
            })
        },
    }
    apply := &cobra.Command{
        Use:   "apply",
        Short: "Store a repricing rule",
        RunE: func(cmd *cobra.Command, args []string) error {
            return c.withApp(cmd.Context(), func(a *app.App) error {
                changes, err := a.Pricing.PreviewRepricing(cmd.Context(), f.seating, pricing.Scope(f.scope), f.ref, f.rule())
                if err != nil {
                    return err
                }
                c.renderChanges(changes)
                n, err := a.Pricing.BulkReprice(cmd.Context(), f.seating, pricing.Scope(f.scope), f.ref, f.rule())
                if err != nil {
                    return err
                }
                fmt.Fprintf(c.Out, "repriced %d seat prices\n", n)
                return nil
            })
        },
    }
    for _, sub := range []*cobra.Command{preview, apply} {
        fl := sub.Flags()
        fl.StringVar(&f.seating, "seating", "", "event seating id")
        fl.StringVar(&f.scope, "scope", string(pricing.ScopeEvent), "event, section, row or seat")
        fl.StringVar(&f.ref, "ref", "", "section id, section/row or seat uid")
        fl.StringVar(&f.kind, "kind", string(pricing.RulePercent), "set, percent or amount")
        fl.StringVar(&f.ttype, "ticket-type", "", "reprice only this ticket type")
        fl.Int64Var(&f.amount, "amount", 0, "amount in cents for set and amount rules")
        fl.Float64Var(&f.percent, "percent", 0, "percent change for percent rules")
        fl.Int64Var(&f.floor, "floor", 0, "minimum base price in cents")
        _ = sub.MarkFlagRequired("seating")
    }
    cmd.AddCommand(preview, apply)
    return cmd
}

func (c *CLI) renderChanges(changes []pricing.Change) {
    t := table.NewWriter()
    t.SetOutputMirror(c.Out)
    t.AppendHeader(table.Row{"Seat", "Ticket type", "Old base", "New base", "Old price", "New price"})
    t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, AutoMerge: true}})
    changed := 0
    for _, ch := range changes {
        if ch.Changed() {
            changed++
        }
        t.AppendRow(table.Row{
            ch.SeatUID, ch.TicketTypeID,
            cents(ch.Old.BasePriceCents), cents(ch.New.BasePriceCents),
            cents(ch.Old.EffectivePriceCents), cents(ch.New.EffectivePriceCents),
        })
    }
    t.AppendFooter(table.Row{"", "", "", "", "changed", changed})
    t.Render()
}

func cents(v int64) string {
    sign := ""
    if v < 0 {
        sign, v = "-", -v
    }
    return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
