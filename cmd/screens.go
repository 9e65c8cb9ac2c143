package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/auroch/internal/stability"
	"github.com/xkilldash9x/auroch/internal/store"
	"github.com/xkilldash9x/auroch/internal/transport"
)

func newServeScreensCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-screens",
		Short: "Receive screenshots and store them under the current run folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Screens
			var idx *store.Index
			if sc.IndexPath != "" {
				var err error
				if idx, err = store.OpenIndex(sc.IndexPath); err != nil {
					return err
				}
				defer idx.Close()
			}
			rs, err := store.OpenRunStore(sc.Root, idx, a.logger)
			if err != nil {
				return err
			}
			ln, err := transport.Listen(sc.ListenAddr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current run: %s -> %s\n", rs.RunID(), rs.Dir())
			srv := transport.NewServer(rs, sc.MaxFrameBytes, sc.ReadTimeout, a.logger)
			return srv.Serve(cmd.Context(), ln)
		},
	}
	cmd.Flags().String("listen", "", "listen address")
	cmd.Flags().String("root", "", "screens root folder")
	bindFlag(cmd, "listen", "screens.listen_addr")
	bindFlag(cmd, "root", "screens.root")
	return cmd
}

func newShotsCmd(a *app) *cobra.Command {
	shots := &cobra.Command{
		Use:   "shots",
		Short: "Inspect stored screenshots",
	}
	shots.PersistentFlags().String("root", "", "screens root folder")
	_ = shots.PersistentFlags().SetAnnotation("root", configKeyAnnotation, []string{"screens.root"})

	var asJSON bool
	latest := &cobra.Command{
		Use:   "latest",
		Short: "Print the latest screenshot of the current run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.Latest(a.cfg.Screens.Root)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Path)
			return nil
		},
	}
	latest.Flags().BoolVar(&asJSON, "json", false, "print latest.json instead of the path")

	var fromStart, poll bool
	follow := &cobra.Command{
		Use:   "follow",
		Short: "Print screenshots of the current run as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return store.Follow(cmd.Context(), a.cfg.Screens.Root, store.FollowOptions{FromStart: fromStart, Poll: poll}, a.logger, func(ev store.Event) error {
				_, err := fmt.Fprintln(out, formatEvent(ev))
				return err
			})
		},
	}
	follow.Flags().BoolVar(&fromStart, "from-start", false, "replay events already recorded")
	follow.Flags().BoolVar(&poll, "poll", false, "poll the events file instead of using inotify")

	var limit int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "List the newest indexed screenshots of the current run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _, err := store.CurrentRun(a.cfg.Screens.Root)
			if err != nil {
				return err
			}
			idx, err := store.OpenIndex(a.cfg.Screens.IndexPath)
			if err != nil {
				return err
			}
			defer idx.Close()
			ctx := cmd.Context()
			total, err := idx.Count(ctx, runID, "")
			if err != nil {
				return err
			}
			changes, err := idx.Count(ctx, runID, stability.EventChanged.VMEvent())
			if err != nil {
				return err
			}
			events, err := idx.Recent(ctx, runID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d shots, %d changes, %d manual\n", runID, total, changes, total-changes)
			for i, ev := range events {
				line := formatEvent(ev)
				if i+1 < len(events) {
					line += " " + hashDistance(ev.Hash, events[i+1].Hash)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	recent.Flags().IntVarP(&limit, "limit", "n", 10, "number of shots")

	shots.AddCommand(latest, follow, recent)
	return shots
}

// hashDistance renders the dHash bit distance to the previous shot.
func hashDistance(cur, prev string) string {
	a, err1 := stability.ParseHash(cur)
	b, err2 := stability.ParseHash(prev)
	if err1 != nil || err2 != nil {
		return "d=?"
	}
	return fmt.Sprintf("d=%d", stability.Hamming(a, b))
}

func formatEvent(ev store.Event) string {
	return fmt.Sprintf("%d %-14s %s %s", ev.TsMs, ev.VMEvent, ev.Hash, ev.Path)
}
