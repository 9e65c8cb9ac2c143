package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/actuator"
)

func newActuatorCmd(a *app) *cobra.Command {
	act := &cobra.Command{
		Use:   "actuator",
		Short: "Actuator endpoint tools",
	}

	var simulate bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run an actuator endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !simulate {
				return errors.New("only --simulate is supported; physical actuation runs on the device")
			}
			transport, err := actuator.ParseTransport(a.cfg.Actuator.Transport)
			if err != nil {
				return err
			}
			sim := actuator.NewSimulator(schemas.Point{}, a.logger)
			if transport == actuator.TransportZMQ {
				return serveZMQ(cmd, a, sim)
			}
			return serveWebsocket(cmd, a, sim)
		},
	}
	serve.Flags().BoolVar(&simulate, "simulate", false, "accept and log action lists without moving anything")
	serve.Flags().String("listen", "", "listen address")
	serve.Flags().String("transport", "", "zmq or websocket")
	bindFlag(serve, "listen", "actuator.simulate_listen")
	bindFlag(serve, "transport", "actuator.transport")

	act.AddCommand(serve)
	return act
}

func serveZMQ(cmd *cobra.Command, a *app, sim *actuator.Simulator) error {
	ctx := cmd.Context()
	rep := zmq4.NewRep(ctx)
	defer rep.Close()
	_, endpoint := actuator.Endpoint(a.cfg.Actuator.SimulateListen, actuator.TransportZMQ)
	if err := rep.Listen(endpoint); err != nil {
		return fmt.Errorf("bind simulator %s: %w", endpoint, err)
	}
	a.logger.Info("Simulated actuator listening", zap.String("addr", rep.Addr().String()), zap.String("transport", "zmq"))
	fmt.Fprintf(cmd.OutOrStdout(), "Simulated actuator on tcp://%s\n", rep.Addr())
	return sim.ServeZMQ(ctx, rep)
}

func serveWebsocket(cmd *cobra.Command, a *app, sim *actuator.Simulator) error {
	ln, err := net.Listen("tcp", a.cfg.Actuator.SimulateListen)
	if err != nil {
		return fmt.Errorf("bind simulator %s: %w", a.cfg.Actuator.SimulateListen, err)
	}
	srv := &http.Server{Handler: sim, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-cmd.Context().Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	a.logger.Info("Simulated actuator listening", zap.String("addr", ln.Addr().String()), zap.String("transport", "websocket"))
	fmt.Fprintf(cmd.OutOrStdout(), "Simulated actuator on ws://%s/\n", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
