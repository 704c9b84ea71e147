package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/absfs/strongbox"
	"github.com/absfs/strongbox/mount"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (c *cli) mountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "bootstrap a random tree, export its goal files and serve it over FUSE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			store, err := strongbox.NewDirStore(c.dataDir)
			if err != nil {
				return err
			}
			key, err := strongbox.CipherKeyFromConfig(cfg)
			if err != nil {
				return err
			}

			fs, err := strongbox.Open(store, cfg, key, log.StandardLogger())
			if err != nil {
				return err
			}
			goals, err := strongbox.Bootstrap(fs, strongbox.NewRand(cfg.Seed))
			if err != nil {
				return err
			}
			if err := strongbox.ExportGoals(store, cfg.GoalDir, goals); err != nil {
				return err
			}
			for _, g := range goals {
				fmt.Fprintf(cmd.OutOrStdout(), "Goal file: %s\nGoal path: %s\nGoal hash: %s\n",
					g.Name, g.Path, g.Fingerprint())
			}

			server, err := mount.Mount(mount.Options{
				Mountpoint: args[0],
				FS:         fs,
				Debug:      cfg.Debug,
				Logger:     log.StandardLogger(),
			})
			if err != nil {
				return err
			}

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-signals
				log.Info("unmounting")
				if err := server.Unmount(); err != nil {
					log.WithError(err).Error("unmount failed")
				}
			}()

			server.Wait()
			logSnapshotActivity(fs)
			return nil
		},
	}
}

func logSnapshotActivity(fs *strongbox.FS) {
	commits, restores := fs.Mirror().Counts()
	persist := fs.Mirror().Metrics().Get("snapshot.persist").(metrics.Timer)
	log.WithFields(log.Fields{
		"commits":  commits,
		"restores": restores,
		"mean_us":  int64(persist.Mean() / 1e3),
	}).Info("snapshot activity")
}
