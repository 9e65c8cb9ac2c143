package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/plan"
)

func newReplayCmd(a *app) *cobra.Command {
	var (
		dryRun bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "replay <log>",
		Short: "Re-send a saved low-level action log (.json or .json.zst)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			actions, err := plan.ReadLog(args[0])
			if err != nil {
				return err
			}
			switch format {
			case "human":
				for _, line := range plan.HumanLog(actions, schemas.Point{}) {
					fmt.Fprintln(out, line)
				}
			case "pi":
				for _, line := range plan.PiCommands(actions) {
					fmt.Fprintln(out, line)
				}
			case "none":
			default:
				return fmt.Errorf("unknown --show format %q", format)
			}
			if dryRun {
				fmt.Fprintf(out, "-- DRY RUN -- %d actions not sent.\n", len(actions))
				return nil
			}
			return a.send(cmd.Context(), out, actions)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print only; do not send")
	cmd.Flags().StringVar(&format, "show", "none", "print the list first: human, pi or none")
	cmd.Flags().String("actuator", "", "actuator address (host:port, tcp:// or ws:// URL)")
	cmd.Flags().String("transport", "", "actuator transport: zmq or websocket")
	bindFlag(cmd, "actuator", "actuator.address")
	bindFlag(cmd, "transport", "actuator.transport")
	return cmd
}
