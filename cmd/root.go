// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/auroch/internal/config"
	"github.com/xkilldash9x/auroch/internal/observability"
)

// configKeyAnnotation marks a flag that overrides a configuration key.
const configKeyAnnotation = "auroch/config-key"

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "auroch",
		Short:         "Humanized remote input and screen-change detection for a remote desktop.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	root.SetVersionTemplate(`{{printf "auroch version %s\n" .Version}}`)

	root.AddCommand(
		newRunCmd(a),
		newReplayCmd(a),
		newMoveCmd(a),
		newWatchCmd(a),
		newServeScreensCmd(a),
		newShotsCmd(a),
		newCtlCmd(a),
		newPlanCmd(a),
		newActuatorCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root, a
}

// load reads file, env and bound flags into a validated config and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	a.v = viper.New()
	config.SetDefaults(a.v)
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	config.BindEnv(a.v)

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys, ok := f.Annotations[configKeyAnnotation]; ok && len(keys) == 1 && bindErr == nil {
			bindErr = a.v.BindPFlag(keys[0], f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "auroch"})
		return err
	}
	a.cfg = cfg
	a.logger = observability.InitializeLogger(cfg.Logger)
	a.logger.Debug("Configuration loaded", zap.String("version", Version), zap.String("file", a.v.ConfigFileUsed()))
	return nil
}

// bindFlag ties a flag to a configuration key so it overrides file and env values.
func bindFlag(cmd *cobra.Command, flag, key string) {
	if err := cmd.Flags().SetAnnotation(flag, configKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// Execute runs the command tree with a signal-aware context.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}
