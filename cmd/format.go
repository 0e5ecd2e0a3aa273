package cmd

import (
	"fmt"
	"io"
)

type Format string

const (
	Human Format = "human" // Headers, indentation, justification etc.
	Plain        = "plain" // Suitable for cli automation via sed/awk etc.
	JSON         = "json"  // Technically a ⊆ yaml, but no one likes yaml.
	YAML         = "yaml"
)

// Formatter is any structure which has methods for serialization.
type Formatter interface {
	Human(io.Writer) error
	Plain(io.Writer) error
	JSON(io.Writer) error
	YAML(io.Writer) error
}

// write to the output the output of the formatter's appropriate serialization function.
func write(out io.Writer, s Formatter, formatName string) error {
	switch Format(formatName) {
	case Human:
		return s.Human(out)
	case Plain:
		return s.Plain(out)
	case JSON:
		return s.JSON(out)
	case YAML:
		return s.YAML(out)
	default:
		return fmt.Errorf("format not recognized: %v", formatName)
	}
}
