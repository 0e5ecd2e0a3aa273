package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ory/viper"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

func NewVersionCmd(version Version) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the version",
		Long: `
NAME
	{{rootCmdUse}} version - show the version.

SYNOPSIS
	{{rootCmdUse}} version [-v|--verbose] [-o|--output]

DESCRIPTION
	Print the version.  With --verbose the commit hash and build date are
	included if available.
`,
		SuggestFor: []string{"vers", "verison"},
		PreRunE:    bindEnv("verbose", "output"),
		RunE: func(cmd *cobra.Command, args []string) error {
			version.Verbose = viper.GetBool("verbose")
			return write(cmd.OutOrStdout(), versionInfo(version), viper.GetString("output"))
		},
	}
	addVerboseFlag(cmd, false)
	addOutputFlag(cmd, string(Human))
	return cmd
}

type versionInfo Version

type versionDoc struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Date    string `json:"date,omitempty" yaml:"date,omitempty"`
}

func (v versionInfo) doc() versionDoc {
	vers := v.Vers
	if vers == "" || vers == "tip" {
		vers = DefaultVersion
	}
	return versionDoc{Version: vers, Commit: v.Hash, Date: v.Date}
}

func (v versionInfo) Human(w io.Writer) error {
	_, err := fmt.Fprintln(w, strings.TrimSpace(Version(v).String()))
	return err
}

func (v versionInfo) Plain(w io.Writer) error {
	_, err := fmt.Fprintln(w, v.doc().Version)
	return err
}

func (v versionInfo) JSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(v.doc())
}

func (v versionInfo) YAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(v.doc())
}
