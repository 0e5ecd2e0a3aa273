package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ory/viper"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

func NewActionsCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the available actions",
		Long: `
NAME
	{{rootCmdUse}} actions - list the available actions.

SYNOPSIS
	{{rootCmdUse}} actions [-o|--output]

DESCRIPTION
	List the actions which can be run with the 'run' command or served with
	the 'serve' command.

EXAMPLES

	o List the actions
	  $ {{rootCmdUse}} actions

	o List the action ids only
	  $ {{rootCmdUse}} actions --output plain
`,
		SuggestFor: []string{"list", "ls", "action", "actoins"},
		PreRunE:    bindEnv("output"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActions(cmd, newClient)
		},
	}
	addOutputFlag(cmd, string(Human))
	return cmd
}

func runActions(cmd *cobra.Command, newClient ClientFactory) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	registry, done, err := newClient(ClientConfig{Config: cfg, Logger: newLogger(cmd, cfg)})
	if err != nil {
		return err
	}
	defer done()

	return write(cmd.OutOrStdout(), actionList(registry.List()), viper.GetString("output"))
}

type actionSummary struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

type actionList []actions.Action

func (l actionList) summaries() []actionSummary {
	ss := make([]actionSummary, 0, len(l))
	for _, a := range l {
		ss = append(ss, actionSummary{ID: a.ID, Description: a.Description})
	}
	return ss
}

func (l actionList) Human(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", "ID", "DESCRIPTION")
	for _, a := range l {
		fmt.Fprintf(tw, "%s\t%s\n", a.ID, a.Description)
	}
	return tw.Flush()
}

func (l actionList) Plain(w io.Writer) error {
	for _, a := range l {
		if _, err := fmt.Fprintln(w, a.ID); err != nil {
			return err
		}
	}
	return nil
}

func (l actionList) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l.summaries())
}

func (l actionList) YAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(l.summaries())
}
