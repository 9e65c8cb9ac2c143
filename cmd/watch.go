package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/auroch/internal/stability"
	"github.com/xkilldash9x/auroch/internal/transport"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sample the screen, send settled changes to the host, and accept mute/unmute/capture-now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Stability
			path := sc.CapturePath
			if path == "" {
				path = filepath.Join(os.TempDir(), "auroch_capture.png")
			}
			capturer := stability.NewCommandCapturer(sc.CaptureProgram, sc.CaptureArgs, path)
			if err := capturer.Check(); err != nil {
				return err
			}

			sender := transport.NewSender(a.cfg.Screens.HostAddress, a.cfg.Screens.SendTimeout, a.cfg.Screens.MaxFrameBytes, a.logger)
			mon, err := stability.NewMonitor(sc.Monitor(), sc.Detector(), capturer, sender, a.logger)
			if err != nil {
				return err
			}
			ln, err := stability.Listen(a.cfg.Control.ListenAddr)
			if err != nil {
				return err
			}
			ctrl := stability.NewControlServer(a.cfg.Control.Server(), mon, a.logger)

			a.logger.Info("Watching screen",
				zap.String("capture", capturer.Program),
				zap.String("host", a.cfg.Screens.HostAddress),
				zap.String("control", ln.Addr().String()),
				zap.Bool("start_muted", sc.StartMuted),
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return mon.Run(ctx) })
			g.Go(func() error { return ctrl.Serve(ctx, ln) })
			return g.Wait()
		},
	}
	cmd.Flags().String("host", "", "screenshot host address (host:port)")
	cmd.Flags().String("listen", "", "control listen address")
	cmd.Flags().String("capture-program", "", "screenshot program to run")
	bindFlag(cmd, "host", "screens.host_address")
	bindFlag(cmd, "listen", "control.listen_addr")
	bindFlag(cmd, "capture-program", "stability.capture_program")
	return cmd
}
