package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/actuator"
	"github.com/xkilldash9x/auroch/internal/plan"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		planPath string
		dryRun   bool
		seed     int64
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Expand a plan into low-level actions, log them and send them to the actuator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			p, err := plan.Load(planPath, a.logger)
			if err != nil {
				return err
			}
			motion, err := a.cfg.Motion.Humanoid()
			if err != nil {
				return err
			}
			opts := []plan.ExpanderOption{plan.WithTargetPolicy(strings.ToLower(a.cfg.Plan.TargetPolicy))}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, plan.WithRand(rand.New(rand.NewSource(seed))))
			}
			exp, err := plan.NewExpander(motion, a.logger, opts...)
			if err != nil {
				return err
			}
			res, err := exp.Expand(p)
			if err != nil {
				return err
			}
			for _, line := range res.Log {
				fmt.Fprintln(out, line)
			}

			path, err := a.writeSentLog(res.Actions, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "--> Wrote low-level plan to %s (len=%d)\n", path, len(res.Actions))

			if dryRun {
				fmt.Fprintln(out, "-- DRY RUN -- not sending to actuator.")
				return nil
			}
			return a.send(cmd.Context(), out, res.Actions)
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "path to the plan JSON ({boxes, actions})")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "build and log only; do not send")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed the expansion for a reproducible list")
	cmd.Flags().String("actuator", "", "actuator address (host:port, tcp:// or ws:// URL)")
	cmd.Flags().String("transport", "", "actuator transport: zmq or websocket")
	cmd.Flags().String("policy", "", "box targeting policy: center or random")
	_ = cmd.MarkFlagRequired("plan")
	bindFlag(cmd, "actuator", "actuator.address")
	bindFlag(cmd, "transport", "actuator.transport")
	bindFlag(cmd, "policy", "plan.target_policy")
	return cmd
}

// writeSentLog records the exact list about to be sent, plus an optional
// human-readable report next to it.
func (a *app) writeSentLog(actions []schemas.LowLevelAction, now time.Time) (string, error) {
	path := plan.LogPath(a.cfg.Plan.LogsDir, now, a.cfg.Plan.CompressLogs)
	if err := plan.WriteLog(path, actions); err != nil {
		return "", fmt.Errorf("write action log: %w", err)
	}
	if a.cfg.Plan.HumanReport {
		report := strings.TrimSuffix(strings.TrimSuffix(path, ".zst"), ".json") + ".txt"
		f, err := os.Create(report)
		if err != nil {
			return "", fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		if err := plan.WriteHumanReport(f, actions, schemas.Point{}); err != nil {
			return "", fmt.Errorf("write report: %w", err)
		}
	}
	return path, nil
}

func (a *app) send(ctx context.Context, out io.Writer, actions []schemas.LowLevelAction) error {
	transport, err := actuator.ParseTransport(a.cfg.Actuator.Transport)
	if err != nil {
		return err
	}
	client := actuator.NewClient(a.cfg.Actuator.Address, transport, a.cfg.Actuator.Timeout, a.logger)
	fmt.Fprintf(out, "--> Sending %d actions to %s\n", len(actions), client.URL())
	reply, err := client.Send(ctx, actions)
	if err != nil {
		return err
	}
	a.logger.Debug("Send complete", zap.Int("actions", len(actions)))
	fmt.Fprintf(out, "<-- Actuator replied: '%s'\n", reply)
	return nil
}
