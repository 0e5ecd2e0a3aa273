package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/ory/viper"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/pipetrigger/pipetrigger/cmd/prompt"
	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

func NewRunCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run an action",
		Long: `
NAME
	{{rootCmdUse}} run - run an action.

SYNOPSIS
	{{rootCmdUse}} run <id> [-i|--input name=value] [-f|--input-file]
	             [-c|--confirm] [-o|--output] [-v|--verbose]

DESCRIPTION
	Validate the given input against the schema of the action and run it.
	Inputs are read from --input-file (JSON when the file ends in .json, TOML
	when it ends in .toml, YAML otherwise) and then from each --input, which
	take precedence.  Values of
	--input are converted to the type the schema of the action expects.

	With --confirm the values of required inputs which were not provided are
	prompted for.

	The outputs of the action are printed, also when it fails.  Pipeline
	actions log their progress to stderr.

EXAMPLES

	o Trigger the MQ build pipeline
	  $ {{rootCmdUse}} run ibm:call-mq-build-pipeline -i clusterName=mq1 \
	      -i persistence=true -i highAvailability=false

	o Run the DevSecOps pipeline with the inputs of a file and wait for the
	  built image
	  $ {{rootCmdUse}} run ibm:trigger-devsecops-pipeline -f deployment.yaml

	o Be prompted for the inputs of the ACE deploy pipeline
	  $ {{rootCmdUse}} run ibm:trigger-ace-deploy-pipeline --confirm
`,
		SuggestFor:        []string{"rnu", "exec", "execute", "trigger", "call"},
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeActionIDs(newClient),
		PreRunE:           bindEnv(append([]string{"input-file", "confirm", "output"}, configFlags...)...),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], newClient)
		},
	}

	cmd.Flags().StringArrayP("input", "i", []string{}, "Input value as name=value. May be repeated.")
	cmd.Flags().StringP("input-file", "f", "", "Path to a JSON, TOML or YAML file holding the input ($PIPETRIGGER_INPUT_FILE)")
	cmd.Flags().BoolP("confirm", "c", false, "Prompt for required inputs which were not provided ($PIPETRIGGER_CONFIRM)")
	addOutputFlag(cmd, string(Human))
	addConfigFlags(cmd)
	return cmd
}

func runRun(cmd *cobra.Command, id string, newClient ClientFactory) (err error) {
	cfg, err := effectiveConfig()
	if err != nil {
		return
	}
	log := newLogger(cmd, cfg)
	registry, done, err := newClient(ClientConfig{Config: cfg, Logger: log})
	if err != nil {
		return
	}
	defer done()

	a, err := registry.Get(id)
	if err != nil {
		return wrapActionError(err, id)
	}

	pairs, err := cmd.Flags().GetStringArray("input")
	if err != nil {
		return
	}
	input, err := newRunInput(a, viper.GetString("input-file"), pairs)
	if err != nil {
		return wrapActionError(err, id)
	}
	if viper.GetBool("confirm") {
		if input, err = confirmRunInput(cmd, a, input); err != nil {
			return wrapActionError(err, id)
		}
	}

	res, runErr := registry.Run(cmd.Context(), id, input, log)
	if res.Invocation != "" {
		if err = write(cmd.OutOrStdout(), runResult(res), viper.GetString("output")); err != nil {
			return
		}
	}
	return wrapActionError(runErr, id)
}

// newRunInput merges the values of the input file with the name=value pairs,
// converting the latter to the types of the action's schema.
func newRunInput(a actions.Action, file string, pairs []string) (map[string]any, error) {
	input := map[string]any{}
	if file != "" {
		var err error
		if input, err = readInputFile(file); err != nil {
			return nil, err
		}
	}

	raw := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: expected name=value, got %q", actions.ErrInvalidInput, p)
		}
		raw[k] = v
	}
	coerced, err := a.Coerce(raw)
	if err != nil {
		return nil, err
	}
	for k, v := range coerced {
		input[k] = v
	}
	return input, nil
}

// confirmRunInput prompts for the required inputs absent from input.
func confirmRunInput(cmd *cobra.Command, a actions.Action, input map[string]any) (map[string]any, error) {
	props, err := a.Properties()
	if err != nil {
		return nil, err
	}
	missing := slices.DeleteFunc(props, func(p actions.Property) bool {
		_, ok := input[p.Name]
		return ok || !p.Required
	})

	raw, err := prompt.NewPromptForInputs(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())(missing)
	if err != nil {
		return nil, err
	}
	coerced, err := a.Coerce(raw)
	if err != nil {
		return nil, err
	}
	for k, v := range coerced {
		input[k] = v
	}
	return input, nil
}

// readInputFile reads an input document.  Files ending in .json are JSON,
// files ending in .toml are TOML and everything else is read as YAML.
func readInputFile(path string) (map[string]any, error) {
	bb, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read input file: %w", err)
	}
	input := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(bb, &input)
	case ".toml":
		err = toml.Unmarshal(bb, &input)
	default:
		err = yamlv3.Unmarshal(bb, &input)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode %v: %w", actions.ErrInvalidInput, path, err)
	}
	return input, nil
}

type runResult actions.Result

func (r runResult) keys() []string {
	keys := make([]string, 0, len(r.Output))
	for k := range r.Output {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r runResult) Human(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Action:\t%v\n", r.Action)
	fmt.Fprintf(tw, "Invocation:\t%v\n", r.Invocation)
	if len(r.Output) > 0 {
		fmt.Fprintln(tw, "Output:\t")
		for _, k := range r.keys() {
			fmt.Fprintf(tw, "  %v:\t%v\n", k, r.Output[k])
		}
	}
	return tw.Flush()
}

func (r runResult) Plain(w io.Writer) error {
	for _, k := range r.keys() {
		if _, err := fmt.Fprintf(w, "%v=%v\n", k, r.Output[k]); err != nil {
			return err
		}
	}
	return nil
}

func (r runResult) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(actions.Result(r))
}

func (r runResult) YAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(actions.Result(r))
}
