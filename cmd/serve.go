package cmd

import (
	"fmt"
	"net"

	"github.com/ory/viper"
	"github.com/spf13/cobra"

	"github.com/pipetrigger/pipetrigger/pkg/server"
)

func NewServeCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the actions over HTTP",
		Long: `
NAME
	{{rootCmdUse}} serve - serve the actions over HTTP.

SYNOPSIS
	{{rootCmdUse}} serve [-a|--address] [-v|--verbose]

DESCRIPTION
	Serve the action catalog to a developer portal.

	  GET  /healthz            liveness
	  GET  /metrics            Prometheus metrics
	  GET  /v1/actions         list the actions
	  GET  /v1/actions/{id}    describe an action
	  POST /v1/actions/{id}    run an action with the body {"input":{...}}

	A run responds with the id of the action, the invocation id and the
	outputs.  Failed runs add an error and respond 400 on invalid input, 404
	for unknown actions and 502 when the action itself failed.

	The server shuts down gracefully on SIGINT or SIGTERM.

EXAMPLES

	o Serve on the default address
	  $ {{rootCmdUse}} serve

	o Serve on port 7007 in development
	  $ {{rootCmdUse}} serve --address :7007 --environment development
`,
		SuggestFor: []string{"server", "srv", "listen"},
		PreRunE:    bindEnv(append([]string{"address"}, configFlags...)...),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, newClient)
		},
	}
	cmd.Flags().StringP("address", "a", server.DefaultAddress, "Address to listen on ($PIPETRIGGER_ADDRESS)")
	addConfigFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, newClient ClientFactory) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	registry, done, err := newClient(ClientConfig{Config: cfg, Logger: log})
	if err != nil {
		return err
	}
	defer done()

	l, err := net.Listen("tcp", viper.GetString("address"))
	if err != nil {
		return fmt.Errorf("cannot listen on %v: %w", viper.GetString("address"), err)
	}
	return server.Serve(cmd.Context(), l, server.NewHandler(registry, log), log)
}
