package main

import (
	"fmt"
	"strings"
)

// commandFunction runs one shell command. args excludes the command name.
type commandFunction func(s *session, args []string) error

type commandArg struct {
	Description string
	Optional    bool
}

type commandInfo struct {
	Name     string
	Summary  string
	Function commandFunction
	Args     []commandArg
	Variadic bool
}

// ValidateArgs checks the argument count against the declared arguments
func (c commandInfo) ValidateArgs(args []string) bool {
	minArgs := 0
	for _, arg := range c.Args {
		if !arg.Optional {
			minArgs++
		}
	}
	return len(args) >= minArgs && (c.Variadic || len(args) <= len(c.Args))
}

func (c commandInfo) FormatArgs() string {
	if len(c.Args) == 0 {
		return ""
	}

	text := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		if arg.Optional {
			text = append(text, fmt.Sprintf("[%s]", arg.Description))
		} else {
			text = append(text, fmt.Sprintf("<%s>", arg.Description))
		}
	}
	return strings.Join(text, " ")
}

func (c commandInfo) Usage() string {
	args := ""
	if len(c.Args) > 0 {
		args = " " + c.FormatArgs()
	}

	variadic := ""
	if c.Variadic {
		variadic = " ..."
	}

	return fmt.Sprintf("   %s%s%s", c.Name, args, variadic)
}
