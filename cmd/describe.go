package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ory/viper"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

func NewDescribeCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <id>",
		Short: "Describe the inputs and outputs of an action",
		Long: `
NAME
	{{rootCmdUse}} describe - describe the inputs and outputs of an action.

SYNOPSIS
	{{rootCmdUse}} describe <id> [-o|--output]

DESCRIPTION
	Print the description of an action, the inputs it accepts and the values
	it outputs.  The json and yaml output formats include the JSON schema the
	input is validated against.

EXAMPLES

	o Describe the DevSecOps action
	  $ {{rootCmdUse}} describe ibm:trigger-devsecops-pipeline

	o Print its input schema
	  $ {{rootCmdUse}} describe ibm:trigger-devsecops-pipeline -o json
`,
		SuggestFor:        []string{"desc", "info", "inspect", "descirbe"},
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeActionIDs(newClient),
		PreRunE:           bindEnv("output"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, args[0], newClient)
		},
	}
	addOutputFlag(cmd, string(Human))
	return cmd
}

func runDescribe(cmd *cobra.Command, id string, newClient ClientFactory) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	registry, done, err := newClient(ClientConfig{Config: cfg, Logger: newLogger(cmd, cfg)})
	if err != nil {
		return err
	}
	defer done()

	a, err := registry.Get(id)
	if err != nil {
		return wrapActionError(err, id)
	}
	d, err := a.Describe()
	if err != nil {
		return err
	}
	return write(cmd.OutOrStdout(), actionDescription(d), viper.GetString("output"))
}

// completeActionIDs offers the ids of the registered actions for completion.
func completeActionIDs(newClient ClientFactory) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		registry, done, err := newClient(ClientConfig{Config: effectiveConfigOrDefault()})
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		defer done()
		ids := []string{}
		for _, a := range registry.List() {
			if strings.HasPrefix(a.ID, toComplete) {
				ids = append(ids, a.ID)
			}
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}

type actionDescription actions.Description

func (d actionDescription) Human(w io.Writer) error {
	fmt.Fprintf(w, "%v\n  %v\n\n", d.ID, d.Description)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tTYPE\tREQUIRED\tDESCRIPTION")
	for _, p := range d.Inputs {
		desc := p.Description
		if desc == "" {
			desc = p.Title
		}
		if len(p.Enum) > 0 {
			desc = fmt.Sprintf("%v %v", desc, p.Enum)
		}
		fmt.Fprintf(tw, "%v\t%v\t%v\t%v\n", p.Name, p.Type, p.Required, desc)
	}
	if len(d.Outputs) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "OUTPUT\tTITLE")
		for _, o := range d.Outputs {
			fmt.Fprintf(tw, "%v\t%v\n", o.Name, o.Title)
		}
	}
	return tw.Flush()
}

func (d actionDescription) Plain(w io.Writer) error {
	for _, p := range d.Inputs {
		if _, err := fmt.Fprintf(w, "%v %v %v\n", p.Name, p.Type, p.Required); err != nil {
			return err
		}
	}
	return nil
}

func (d actionDescription) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(actions.Description(d))
}

func (d actionDescription) YAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(actions.Description(d))
}
