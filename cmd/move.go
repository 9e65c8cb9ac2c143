package cmd

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/humanoid"
	"github.com/xkilldash9x/auroch/internal/plan"
)

func newMoveCmd(a *app) *cobra.Command {
	var (
		from []int
		seed int64
		send bool
	)
	cmd := &cobra.Command{
		Use:   "move <x> <y>",
		Short: "Synthesize one humanized pointer move and print the low-level list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("x: %w", err)
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("y: %w", err)
			}
			if len(from) != 2 {
				return fmt.Errorf("--from takes exactly two values, got %d", len(from))
			}
			motion, err := a.cfg.Motion.Humanoid()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			motion.Rng = rand.New(rand.NewSource(seed))

			h := humanoid.New(motion, a.logger)
			start := schemas.Point{X: from[0], Y: from[1]}
			h.SetPosition(start)
			h.MoveTo(x, y)
			actions := h.Flush()

			fmt.Fprintf(out, "seed=%d end=(%d, %d) actions=%d\n", h.LastSeed(), h.Position().X, h.Position().Y, len(actions))
			for _, line := range plan.HumanLog(actions, start) {
				fmt.Fprintln(out, line)
			}
			if !send {
				return nil
			}
			return a.send(cmd.Context(), out, actions)
		},
	}
	cmd.Flags().IntSliceVar(&from, "from", []int{0, 0}, "starting cursor position x,y")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for a reproducible path")
	cmd.Flags().BoolVar(&send, "send", false, "send the move to the actuator")
	cmd.Flags().String("actuator", "", "actuator address (host:port, tcp:// or ws:// URL)")
	cmd.Flags().String("transport", "", "actuator transport: zmq or websocket")
	bindFlag(cmd, "actuator", "actuator.address")
	bindFlag(cmd, "transport", "actuator.transport")
	return cmd
}
