package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/auroch/internal/stability"
)

func newCtlCmd(a *app) *cobra.Command {
	ctl := &cobra.Command{
		Use:   "ctl",
		Short: "Send a control command to a running watcher",
	}
	ctl.PersistentFlags().String("addr", "", "watcher control address (host:port)")
	_ = ctl.PersistentFlags().SetAnnotation("addr", configKeyAnnotation, []string{"control.address"})

	exchange := func(cmd *cobra.Command, req stability.ControlRequest) error {
		reply, err := stability.SendControl(cmd.Context(), a.cfg.Control.Address, req, a.cfg.Control.ClientTimeout)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}

	var ttl time.Duration
	mute := &cobra.Command{
		Use:   "mute",
		Short: "Suppress change detection for a while",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("ttl") {
				ttl = a.cfg.Control.DefaultMuteTTL
			}
			return exchange(cmd, stability.MuteRequest(ttl))
		},
	}
	mute.Flags().DurationVar(&ttl, "ttl", 0, "mute duration (default control.default_mute_ttl)")

	unmute := &cobra.Command{
		Use:   "unmute",
		Short: "Resume change detection from a fresh baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exchange(cmd, stability.ControlRequest{Cmd: "unmute"})
		},
	}

	captureNow := &cobra.Command{
		Use:   "capture-now",
		Short: "Send one screenshot immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exchange(cmd, stability.ControlRequest{Cmd: "capture_now"})
		},
	}

	ctl.AddCommand(mute, unmute, captureNow)
	return ctl
}
