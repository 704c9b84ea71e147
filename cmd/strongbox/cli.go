package main

import (
	"context"

	"github.com/absfs/strongbox"
	"github.com/absfs/strongbox/attack"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultDataDir = "."

// cli holds the root command and the flags shared by every subcommand.
type cli struct {
	rootCmd *cobra.Command

	configPath string
	dataDir    string
	debug      bool

	// code is the exit status chosen by the subcommand that ran.
	code int
}

func newCLI() *cli {
	c := &cli{}
	c.rootCmd = &cobra.Command{
		Use:           "strongbox",
		Short:         "strongbox is an AES-XTS filesystem that leaks through its ciphertext",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML config file")
	flags.StringVar(&c.dataDir, "data-dir", defaultDataDir, "directory holding snapshots and goal records")
	flags.BoolVar(&c.debug, "debug", false, "enable debug logging")

	c.rootCmd.AddCommand(
		c.mountCmd(),
		c.enumerateCmd(),
		c.guessCmd(),
		c.demoCmd(),
	)
	return c
}

func (c *cli) exec(args []string) int {
	c.rootCmd.SetArgs(args)
	if err := c.rootCmd.ExecuteContext(context.Background()); err != nil {
		if c.code == attack.ExitSuccess {
			c.code = attack.ExitError
		}
	}
	return c.code
}

// config loads the config file and applies the shared flags.
func (c *cli) config() (*strongbox.Config, error) {
	cfg, err := strongbox.LoadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.debug {
		cfg.Debug = true
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

// finish records the exit status for an attack outcome. Exhaustion and
// contradiction are reported here rather than as command errors.
func (c *cli) finish(err error) error {
	c.code = attack.ExitCode(err)
	if c.code == attack.ExitError {
		return err
	}
	return nil
}
