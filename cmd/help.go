package cmd

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
)

// defaultTemplatedHelp renders the Long description of a command as a
// template (see helpTemplate) followed by its usage.
func defaultTemplatedHelp(cmd *cobra.Command, args []string) {
	var b strings.Builder
	t, err := helpTemplate(cmd)
	if err == nil {
		err = t.Execute(&b, cmd)
	}
	if err != nil {
		failSoftFor(cmd)(err)
		b.Reset()
		b.WriteString(description(cmd))
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(b.String()))
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
}

// A function that conditionally writes an error
type ConditionalErrorWriter func(error)

// failSoftFor returns a ConditionalErrorWriter which writes to the provided
// command's stderr.  Help can not fail, because help text is needed exactly
// when something else did.
func failSoftFor(cmd *cobra.Command) ConditionalErrorWriter {
	return func(err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: help text may be partial: %v\n", err)
		}
	}
}

// helpTemplate parses the description of the command.  rootCmdUse
// expands to the name of the binary.
func helpTemplate(cmd *cobra.Command) (*template.Template, error) {
	t := template.New("help")
	t.Funcs(template.FuncMap{
		"rootCmdUse": func() string { return cmd.Root().Use },
	})
	return t.Parse(description(cmd))
}

func description(cmd *cobra.Command) string {
	if cmd.Long != "" {
		return cmd.Long
	}
	return cmd.Short
}
