package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/pipetrigger/pipetrigger/pkg/config"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change the global configuration",
		Long: `
NAME
	{{rootCmdUse}} config - show and change the global configuration.

SYNOPSIS
	{{rootCmdUse}} config
	{{rootCmdUse}} config path
	{{rootCmdUse}} config list
	{{rootCmdUse}} config get <key>
	{{rootCmdUse}} config set <key> <value>

DESCRIPTION
	Without a subcommand the path of the config file and the configuration
	in effect, static defaults included, are printed.

	The file is read from $XDG_CONFIG_HOME/pipetrigger/config.yaml, or
	~/.config/pipetrigger/config.yaml, unless $PIPETRIGGER_CONFIG_FILE or
	--config names another.  Flags and PIPETRIGGER_* environment variables
	override its values for a single command.

	Members of maps are addressed as <key>.<name>.

EXAMPLES

	o Use the development EventListener routes
	  $ {{rootCmdUse}} config set environment development

	o Point the MQ build action at another EventListener
	  $ {{rootCmdUse}} config set endpoints.ibm:call-mq-build-pipeline http://el-mq.example.com
`,
		SuggestFor: []string{"cfg", "cofnig", "settings"},
		Args:       cobra.NoArgs,
		RunE:       runConfig,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the path of the config file",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), config.File())
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the configurable keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, k := range config.List() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a configured value",
			Args:  cobra.ExactArgs(1),
			RunE:  runConfigGet,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist a value to the config file",
			Args:  cobra.ExactArgs(2),
			RunE:  runConfigSet,
		},
	)
	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewDefault()
	if err != nil {
		return fmt.Errorf("error loading config at '%v': %w", config.File(), err)
	}
	bb, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %v\n%s", config.File(), bb)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewDefault()
	if err != nil {
		return fmt.Errorf("error loading config at '%v': %w", config.File(), err)
	}
	v := config.Get(cfg, args[0])
	if v == nil {
		return fmt.Errorf("unknown config key %q, see '%v config list'", args[0], cmd.Root().Use)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

// runConfigSet changes only the file as it exists on disk, such that static
// defaults are not persisted along with the value.
func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.File())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.Global{}
	}
	if cfg, err = config.Set(cfg, args[0], args[1]); err != nil {
		return err
	}
	if err = config.CreatePaths(); err != nil {
		return err
	}
	return cfg.Write(config.File())
}
