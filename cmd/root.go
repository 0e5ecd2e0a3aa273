package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/go-logr/logr"
	"github.com/ory/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pipetrigger/pipetrigger/pkg/config"
	"github.com/pipetrigger/pipetrigger/pkg/logging"
)

// DefaultVersion when building source directly (bypassing the Makefile)
const DefaultVersion = "v0.0.0+source"

// EnvPrefix of the environment variables overriding flags.
const EnvPrefix = "pipetrigger"

type RootCommandConfig struct {
	Name string // usually `pipetrigger`
	Version
	NewClient ClientFactory
}

// NewRootCmd creates the root of the command tree defines the command name, description, globally
// available flags, etc.  It has no action of its own, such that running the
// resultant binary with no arguments prints the help/usage text.
func NewRootCmd(cfg RootCommandConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   cfg.Name,
		Short: fmt.Sprintf("%s triggers Tekton pipelines on behalf of a developer portal", cfg.Name),
		Long: fmt.Sprintf(`%s runs the pipeline actions of a developer portal

Each action posts an event to a Tekton EventListener.  Some actions follow
the resulting PipelineRun until it completes and report its results.

	List the available actions:
	{{.Use}} actions

	Trigger the MQ build pipeline:
	{{.Use}} run ibm:call-mq-build-pipeline -i clusterName=mq1 -i persistence=true -i highAvailability=false

	Serve the actions over HTTP:
	{{.Use}} serve --address :8080`, cfg.Name),

		DisableAutoGenTag: true, // no docs header
		SilenceUsage:      true, // no usage dump on error
		SilenceErrors:     true, // we explicitly handle errors in main
	}

	// Config file
	// Flags of subcommands are defaulted from the config file when they are
	// defined, so --config is preparsed (see effectiveConfigFile).
	if path := effectiveConfigFile(); path != "" {
		os.Setenv("PIPETRIGGER_CONFIG_FILE", path)
	}
	cmd.PersistentFlags().String("config", config.File(), "Path of the config file ($PIPETRIGGER_CONFIG_FILE)")

	// Environment Variables
	// Evaluated first after static defaults, set all flags to be associated with
	// a version prefixed by "PIPETRIGGER_"
	viper.AutomaticEnv()          // read in environment variables for PIPETRIGGER_<flag>
	viper.SetEnvPrefix(EnvPrefix) // ensure that all have the prefix
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Client
	// Use the provided ClientFactory or default to NewClient
	newClient := cfg.NewClient
	if newClient == nil {
		newClient = NewClient
	}

	cmd.SetHelpFunc(defaultTemplatedHelp) // inherited by subcommands

	cmd.AddGroup(
		&cobra.Group{ID: "actions", Title: "Action Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	for _, c := range []*cobra.Command{
		NewActionsCmd(newClient),
		NewDescribeCmd(newClient),
		NewRunCmd(newClient),
		NewServeCmd(newClient),
	} {
		c.GroupID = "actions"
		cmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		NewConfigCmd(),
		NewVersionCmd(cfg.Version),
	} {
		c.GroupID = "system"
		cmd.AddCommand(c)
	}

	return cmd
}

// Helpers
// ------------------------------------------

// effectiveConfigFile is the value of --config.  Manually parses flags such
// that this can be used during (cobra/viper) flag definition (prior to
// parsing).
func effectiveConfigFile() string {
	var (
		fs = pflag.NewFlagSet("", pflag.ContinueOnError)
		p  = fs.String("config", "", "")
	)
	fs.SetOutput(io.Discard)
	fs.ParseErrorsWhitelist.UnknownFlags = true // wokeignore:rule=whitelist
	// Errors are ignored: this is an opportunistic parse, the flags are
	// validated by cobra later.
	_ = fs.Parse(os.Args[1:])
	return *p
}

// bindFunc which conforms to the cobra PreRunE method signature
type bindFunc func(*cobra.Command, []string) error

// bindEnv returns a bindFunc that binds env vars to the named flags.
func bindEnv(flags ...string) bindFunc {
	return func(cmd *cobra.Command, args []string) (err error) {
		for _, flag := range flags {
			if err = viper.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
				return
			}
		}
		viper.AutomaticEnv()          // read in environment variables for PIPETRIGGER_<flag>
		viper.SetEnvPrefix(EnvPrefix) // ensure that all have the prefix
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		return
	}
}

func addVerboseFlag(cmd *cobra.Command, dflt bool) {
	cmd.Flags().BoolP("verbose", "v", dflt, "Print verbose logs ($PIPETRIGGER_VERBOSE)")
}

func addOutputFlag(cmd *cobra.Command, dflt string) {
	cmd.Flags().StringP("output", "o", dflt, "Output format (human, plain, json, yaml) ($PIPETRIGGER_OUTPUT)")
}

// configFlags are the flags overriding members of the global config.
var configFlags = []string{"environment", "backend-url", "notify-sink", "insecure", "log-format", "verbose"}

// addConfigFlags adds the flags overriding the global config, defaulted to
// the values of the config file.
func addConfigFlags(cmd *cobra.Command) {
	cfg, err := config.NewDefault()
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "error loading config at '%v'. %v\n", config.File(), err)
		cfg = config.New()
	}

	cmd.Flags().String("environment", cfg.Environment, "Environment selecting the EventListener routes: development or production ($PIPETRIGGER_ENVIRONMENT)")
	cmd.Flags().String("backend-url", cfg.BackendURL, "Base URL of the portal backend receiving build results ($PIPETRIGGER_BACKEND_URL)")
	cmd.Flags().String("notify-sink", cfg.NotifySink, "URL receiving a CloudEvent when a followed PipelineRun completes ($PIPETRIGGER_NOTIFY_SINK)")
	cmd.Flags().Bool("insecure", cfg.Insecure, "Skip verification of TLS certificates ($PIPETRIGGER_INSECURE)")
	cmd.Flags().String("log-format", cfg.LogFormat, "Log format: console or json ($PIPETRIGGER_LOG_FORMAT)")
	addVerboseFlag(cmd, cfg.Verbose)
}

// effectiveConfig is the global config with the values of flags and
// environment variables applied.  Members whose flag was neither set nor
// bound keep the value of the config file.
func effectiveConfig() (config.Global, error) {
	cfg, err := config.NewDefault()
	if err != nil {
		return cfg, fmt.Errorf("error loading config at '%v': %w", config.File(), err)
	}
	if viper.IsSet("environment") {
		cfg.Environment = viper.GetString("environment")
	}
	if viper.IsSet("backend-url") {
		cfg.BackendURL = viper.GetString("backend-url")
	}
	if viper.IsSet("notify-sink") {
		cfg.NotifySink = viper.GetString("notify-sink")
	}
	if viper.IsSet("insecure") {
		cfg.Insecure = viper.GetBool("insecure")
	}
	if viper.IsSet("log-format") {
		cfg.LogFormat = viper.GetString("log-format")
	}
	if viper.IsSet("verbose") {
		cfg.Verbose = viper.GetBool("verbose")
	}
	return cfg, nil
}

// effectiveConfigOrDefault is effectiveConfig for callers which can not fail,
// such as shell completion.
func effectiveConfigOrDefault() config.Global {
	cfg, err := effectiveConfig()
	if err != nil {
		return config.New()
	}
	return cfg
}

// newLogger returns the logger of a command, client-go included.
func newLogger(cmd *cobra.Command, cfg config.Global) logr.Logger {
	l := logging.New(logging.Options{
		Format:  cfg.LogFormat,
		Verbose: cfg.Verbose,
		Writer:  cmd.ErrOrStderr(),
	})
	logging.RedirectKlog(l)
	return l
}

// Version information populated on build.
type Version struct {
	// Version tag of the git commit, or 'tip' if no tag.
	Vers string
	// Hash of the currently active git commit on build.
	Hash string
	// Date of the build.
	Date string
	// Verbose printing enabled for the string representation.
	Verbose bool
}

// Return the stringification of the Version struct.
func (v Version) String() string {
	// Initialize the default value to the zero semver with a descriptive
	// metadta tag indicating this must have been built from source if
	// undefined:
	if v.Vers == "" || v.Vers == "tip" {
		v.Vers = DefaultVersion
	}
	if v.Verbose {
		return v.StringVerbose()
	}
	_ = semver.MustParse(v.Vers)
	return v.Vers
}

// StringVerbose returns the version along with extended version metadata.
func (v Version) StringVerbose() string {
	vers := v.Vers
	if vers == "" || vers == "tip" {
		vers = DefaultVersion
	}
	return fmt.Sprintf(
		"Version: %s\n"+
			"Commit: %s\n"+
			"Date: %s\n",
		vers,
		v.Hash,
		v.Date)
}
