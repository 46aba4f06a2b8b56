package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/Project-Sylos/Stash/sdk"
)

const defaultConfigPath = "configs/stash.json"

type args struct {
	ConfigPath string
	Password   string
	Verbose    bool
	Command    []string
}

func main() {
	args, err := parseArgs()
	if err != nil {
		pflag.Usage()
		fmt.Printf("Error parsing args: %+v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(2)
	}

	client, err := sdk.NewWithConfig(cfg)
	if err != nil {
		fmt.Printf("%+v\n", errors.Wrap(err, "Failed to create vault client"))
		os.Exit(3)
	}

	fileKey, err := client.FileKey(args.Password)
	if err != nil {
		client.Close()
		fmt.Printf("%+v\n", errors.Wrap(err, "Failed to derive fileKey"))
		os.Exit(4)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{client: client, ctx: ctx, fileKey: fileKey, out: os.Stdout}

	// Gracefully handle SIGINT and SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		client.Close()
		os.Exit(0)
	}()

	// One-shot mode: the remaining arguments are a single command
	if len(args.Command) > 0 {
		err := runCommand(s, args.Command)
		cancel()
		client.Close()
		if err != nil {
			fmt.Printf("%+v\n", err)
			os.Exit(5)
		}
		return
	}

	repl(s, os.Stdin)
	cancel()
	client.Close()
}

func parseArgs() (*args, error) {
	configPath := pflag.StringP("config", "c", defaultConfigPath, "Path to the JSON config file")
	password := pflag.StringP("password", "w", "", "Account password, used to derive the fileKey (default $STASH_PASSWORD)")
	verbose := pflag.BoolP("verbose", "v", false, "Log every request at debug level")
	pflag.Parse()

	if *configPath == "" {
		return nil, errors.New("Error: config path required.")
	}
	if *password == "" {
		*password = os.Getenv("STASH_PASSWORD")
	}

	return &args{
		ConfigPath: *configPath,
		Password:   *password,
		Verbose:    *verbose,
		Command:    pflag.Args(),
	}, nil
}

func loadConfig(a *args) (*sdk.Config, error) {
	cfg, err := sdk.LoadConfig(a.ConfigPath)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load config")
	}

	if a.Verbose {
		cfg.Client.Verbose = true
	}
	return cfg, nil
}

// repl reads commands until quit or end of input
func repl(s *session, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "stash> ")

		if !scanner.Scan() {
			break
		}

		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}
		if command == commandQuit || command == "exit" {
			break
		}

		if err := processCommand(s, command); err != nil {
			fmt.Fprintln(s.out, "Failed to run command:")
			fmt.Fprintf(s.out, "%v\n", err)
		}
	}
	fmt.Fprintln(s.out, "")
}

// processCommand splits one input line shell-style and runs it
func processCommand(s *session, input string) error {
	words, err := shellquote.Split(input)
	if err != nil {
		return errors.Wrap(err, "Failed to split command.")
	}
	if len(words) == 0 {
		return nil
	}
	return runCommand(s, words)
}

func runCommand(s *session, words []string) error {
	name, rest := words[0], words[1:]

	c, ok := commands[name]
	if !ok {
		fmt.Fprintf(s.out, "Unknown command: [%s]. Try %q.\n", name, commandHelp)
		return nil
	}

	if !c.ValidateArgs(rest) {
		fmt.Fprintf(s.out, "USAGE: %s\n", c.Usage())
		return nil
	}

	return errors.WithStack(c.Function(s, rest))
}
