package main

import (
	"fmt"

	"github.com/absfs/memfs"
	"github.com/absfs/strongbox"
	"github.com/absfs/strongbox/attack"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type demoFlags struct {
	secret string
}

// demoCmd runs both attacks in-process against an in-memory store, with no
// mount and nothing written to the host.
func (c *cli) demoCmd() *cobra.Command {
	var flags demoFlags
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "run the enumeration and oracle attacks in-process on an in-memory store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			store, err := memfs.NewFS()
			if err != nil {
				return fmt.Errorf("failed to create in-memory store: %w", err)
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
			loaded, err := strongbox.LoadGoals(store, cfg.GoalDir)
			if err != nil {
				return err
			}
			goal := loaded[0]
			fmt.Fprintf(cmd.OutOrStdout(), "Goal file: %s\nGoal hash: %s\n", goal.Name, goal.Fingerprint())

			result, err := attack.Enumerate(cmd.Context(), fs, fs.Mirror().SnapshotFiles, goal.Contents,
				attack.EnumerateOptions{Shuffle: true, Seed: cfg.Seed, Logger: log.StandardLogger()})
			report(cmd, result, err)
			logSnapshotActivity(fs)
			if err != nil {
				return c.finish(err)
			}
			if result.Path != goal.Path {
				fmt.Fprintf(cmd.OutOrStdout(), "FAILURE: matched %s, goal lives at %s\n", result.Path, goal.Path)
				return c.finish(attack.ErrExhausted)
			}

			guessed, err := runGuess(cmd, flags.secret, attack.DefaultAlphabet)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "FAILED: %v\n", err)
				return c.finish(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Guessed password %q in %d rounds, %d queries\n",
				guessed.Secret, guessed.Rounds, guessed.Queries)
			return c.finish(nil)
		},
	}
	cmd.Flags().StringVar(&flags.secret, "secret", "Tr0ub4dor&3", "secret for the oracle attack")
	return cmd
}
