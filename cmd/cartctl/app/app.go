package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/assistcart/internal/cartagent/service"
	"github.com/autopeer-io/assistcart/internal/cartctl"
)

type globalOptions struct {
	server  string
	timeout time.Duration
	output  string
}

// NewCommand returns the cartctl root command writing to out.
func NewCommand(out io.Writer) *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "cartctl",
		Short:         "Drive and inspect an assistcart agent over HTTP",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if g.output != "table" && g.output != "json" {
				return fmt.Errorf("--output must be table or json, got %q", g.output)
			}
			return nil
		},
	}
	cmd.SetOut(out)

	fs := cmd.PersistentFlags()
	fs.StringVarP(&g.server, "server", "s", "http://127.0.0.1:8000", "Base URL of the cart agent.")
	fs.DurationVar(&g.timeout, "timeout", 10*time.Second, "Request timeout.")
	fs.StringVarP(&g.output, "output", "o", "table", "Output format: table or json.")

	cmd.AddCommand(
		newStatusCommand(g),
		newSendCommand(g),
		newFuelCommand(g),
		newEmergencyCommand(g),
		newResetCommand(g),
	)
	return cmd
}

func (g *globalOptions) client() *cartctl.Client {
	return cartctl.NewClient(g.server, g.timeout)
}

func newStatusCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the vehicle status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := g.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), report, statusTable(report))
		},
	}
}

func newSendCommand(g *globalOptions) *cobra.Command {
	var skip bool
	c := &cobra.Command{
		Use:     "send TEXT...",
		Aliases: []string{"command"},
		Short:   "Send a spoken-style command or a device token",
		Example: "  cartctl send 시동 켜\n  cartctl send S40",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().Command(cmd.Context(), strings.Join(args, " "), skip)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), res, resultTable(res))
		},
	}
	c.Flags().BoolVar(&skip, "skip", false, "Mark the command as skipped; nothing is sent to the device.")
	return c
}

func newFuelCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fuel LEVEL",
		Short: "Set the fuel level (0-100)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid level %q: %w", args[0], err)
			}
			res, err := g.client().SetFuel(cmd.Context(), level)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.AddRow("LEVEL", "MESSAGE")
			table.AddRow(res.Level, res.Message)
			return g.print(cmd.OutOrStdout(), res, table)
		},
	}
}

func newEmergencyCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "emergency",
		Short: "Send the emergency token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := g.client().Emergency(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), res, resultTable(res))
		},
	}
}

func newResetCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the start-up vehicle status and clear the emergency latch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := g.client().Reset(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), report, statusTable(report))
		},
	}
}

func (g *globalOptions) print(out io.Writer, v any, table *uitable.Table) error {
	if g.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(out, table)
	return err
}

func statusTable(r service.StatusReport) *uitable.Table {
	voltage := "unknown"
	if r.Voltage >= 0 {
		voltage = fmt.Sprintf("%.1f V", r.Voltage)
		if r.VoltageStale {
			voltage += " (stale)"
		}
	}

	table := uitable.New()
	table.AddRow("ENGINE", onOff(r.EngineOn))
	table.AddRow("SPEED", r.Speed)
	table.AddRow("FUEL", fmt.Sprintf("%d%%", r.FuelLevel))
	table.AddRow("VOLTAGE", voltage)
	table.AddRow("DOOR", openClosed(r.DoorOpen))
	table.AddRow("EMERGENCY", r.Emergency)
	link := r.Link
	if r.LinkError != "" {
		link += " (" + r.LinkError + ")"
	}
	table.AddRow("LINK", link)
	return table
}

func resultTable(r service.Result) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	table.AddRow("STATUS", "SENT", "ACK")
	table.AddRow(r.Status, r.SentCommand, r.Ack)
	if r.Error != "" {
		table.AddRow("", "", "error: "+r.Error)
	}
	return table
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func openClosed(b bool) string {
	if b {
		return "open"
	}
	return "closed"
}

