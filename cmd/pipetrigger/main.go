package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pipetrigger/pipetrigger/cmd"
)

// Statically-populated build metadata set
// by `make build`.
var date, vers, hash string

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigs
		cancel()
		// second sigint/sigterm is treated as sigkill
		<-sigs
		os.Exit(137)
	}()

	root := cmd.NewRootCmd(cmd.RootCommandConfig{
		Name: "pipetrigger",
		Version: cmd.Version{
			Date: date,
			Vers: vers,
			Hash: hash,
		}})

	if err := root.ExecuteContext(ctx); err != nil {
		// Errors are printed to STDERR output and the process exits with code of 1.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
