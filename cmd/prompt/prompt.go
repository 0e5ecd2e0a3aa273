package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

// InputPrompter asks for the values of the given properties.  Values are
// returned in their string form, ready for actions.Action.Coerce.
type InputPrompter func(props []actions.Property) (map[string]string, error)

// NewPromptForInputs returns a prompter reading from in.  Terminals get a
// survey form: a selection for enumerations, a confirmation for booleans and
// a free text input otherwise.  Any other reader is read line by line.
func NewPromptForInputs(in io.Reader, out, errOut io.Writer) InputPrompter {
	return func(props []actions.Property) (map[string]string, error) {
		if len(props) == 0 {
			return map[string]string{}, nil
		}

		var (
			fr terminal.FileReader
			fw terminal.FileWriter
			ok bool
		)
		isTerm := false
		if fr, ok = in.(terminal.FileReader); ok {
			if fw, ok = out.(terminal.FileWriter); ok {
				isTerm = term.IsTerminal(int(fr.Fd()))
			}
		}

		if isTerm {
			return askSurvey(props, survey.WithStdio(fr, fw, errOut))
		}
		return askLines(props, bufio.NewReader(in), out)
	}
}

func askSurvey(props []actions.Property, opts ...survey.AskOpt) (map[string]string, error) {
	values := make(map[string]string, len(props))
	required := append(append([]survey.AskOpt{}, opts...), survey.WithValidator(survey.Required))
	for _, p := range props {
		switch {
		case len(p.Enum) > 0:
			var v string
			if err := survey.AskOne(&survey.Select{
				Message: label(p),
				Options: options(p.Enum),
				Help:    p.Description,
			}, &v, required...); err != nil {
				return nil, err
			}
			values[p.Name] = v
		case p.Type == "boolean":
			var v bool
			if err := survey.AskOne(&survey.Confirm{
				Message: label(p),
				Help:    p.Description,
			}, &v, opts...); err != nil { // false is an answer
				return nil, err
			}
			values[p.Name] = strconv.FormatBool(v)
		default:
			var v string
			if err := survey.AskOne(&survey.Input{
				Message: label(p),
				Help:    p.Description,
			}, &v, required...); err != nil {
				return nil, err
			}
			values[p.Name] = v
		}
	}
	return values, nil
}

func askLines(props []actions.Property, r *bufio.Reader, out io.Writer) (map[string]string, error) {
	values := make(map[string]string, len(props))
	for _, p := range props {
		if len(p.Enum) > 0 {
			fmt.Fprintf(out, "%v %v: ", label(p), options(p.Enum))
		} else {
			fmt.Fprintf(out, "%v: ", label(p))
		}
		v, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || v == "") {
			return nil, fmt.Errorf("cannot read %v: %w", p.Name, err)
		}
		values[p.Name] = strings.Trim(v, "\r\n")
	}
	return values, nil
}

func label(p actions.Property) string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

func options(enum []any) []string {
	oo := make([]string, 0, len(enum))
	for _, e := range enum {
		oo = append(oo, fmt.Sprint(e))
	}
	return oo
}
