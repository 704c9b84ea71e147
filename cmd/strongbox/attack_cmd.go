package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/absfs/strongbox"
	"github.com/absfs/strongbox/attack"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type enumerateFlags struct {
	shuffle bool
	seed    uint64
}

func (c *cli) enumerateCmd() *cobra.Command {
	var flags enumerateFlags
	cmd := &cobra.Command{
		Use:   "enumerate <mountpoint>",
		Short: "locate the goal file under a mounted strongbox by cipher snapshot comparison",
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
			goals, err := strongbox.LoadGoals(store, cfg.GoalDir)
			if err != nil {
				return err
			}
			if len(goals) == 0 {
				return fmt.Errorf("no goal records in %s", cfg.GoalDir)
			}
			goal := goals[0]
			fmt.Fprintf(cmd.OutOrStdout(), "Using goal file (%s%s)\n", goal.Name, strongbox.GoalFileExt)

			snaps, err := strongbox.NewSnapshotFiles(store, cfg)
			if err != nil {
				return err
			}
			result, err := attack.Enumerate(cmd.Context(), &attack.HostTarget{Root: args[0]}, snaps, goal.Contents,
				attack.EnumerateOptions{Shuffle: flags.shuffle, Seed: flags.seed, Logger: log.StandardLogger()})
			report(cmd, result, err)
			return c.finish(err)
		},
	}
	cmd.Flags().BoolVar(&flags.shuffle, "shuffle", false, "probe candidates in random order")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "shuffle seed (0 picks one)")
	return cmd
}

func report(cmd *cobra.Command, result *attack.EnumerateResult, err error) {
	out := cmd.OutOrStdout()
	switch {
	case err == nil && result.Found:
		fmt.Fprintf(out, "SUCCESS: found goalfile under path %s via XTS ciphertext match\n", result.Path)
	case errors.Is(err, attack.ErrExhausted):
		fmt.Fprintln(out, "FAILURE: goalfile was not found via XTS ciphertext match")
	}
}

type guessFlags struct {
	alphabet string
}

func (c *cli) guessCmd() *cobra.Command {
	var flags guessFlags
	cmd := &cobra.Command{
		Use:   "guess",
		Short: "recover a secret through an encrypted match-count oracle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.config(); err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), "Enter the real password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			secret := strings.TrimRight(line, "\r\n")

			result, err := runGuess(cmd, secret, flags.alphabet)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Guessed password %q successfully\n", result.Secret)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "FAILED: %v\n", err)
			}
			return c.finish(err)
		},
	}
	cmd.Flags().StringVar(&flags.alphabet, "alphabet", attack.DefaultAlphabet, "candidate characters, in probe order")
	return cmd
}

// runGuess builds an oracle under a fresh process key and attacks it.
func runGuess(cmd *cobra.Command, secret, alphabet string) (*attack.GuessResult, error) {
	key, err := strongbox.NewCipherKey()
	if err != nil {
		return nil, err
	}
	cipher, err := strongbox.NewArenaCipher(key)
	if err != nil {
		return nil, err
	}
	oracle, err := attack.NewXTSOracle(secret, cipher, nil)
	if err != nil {
		return nil, err
	}
	return attack.Guess(cmd.Context(), oracle, oracle.Len(), alphabet,
		attack.GuessOptions{Verify: oracle.Verify, Logger: log.StandardLogger()})
}
