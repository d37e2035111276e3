// Package main provides chaininspect, a small CLI that loads a JSON-encoded
// chain and its initial entity from a file and prints reconstructed state at
// a given instant, or joins several chain files into a product view.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 64
)

// Version information.
var (
	version = "0.1.0"
	commit  = "unknown"
)

type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(ctx context.Context, args []string) error
}

func main() {
	ctx := context.Background()
	commands := buildCommands()

	args := os.Args[1:]
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		showHelp(commands)
		os.Exit(ExitSuccess)
	}

	cmdName := args[0]
	cmdArgs := args[1:]
	executeCommand(ctx, commands, cmdName, cmdArgs)
}

func buildCommands() map[string]*Command {
	commands := map[string]*Command{
		"at": {
			Name:        "at",
			Description: "Reconstruct a chain's entity state at an instant",
			Usage:       "chaininspect at [-config FILE] CHAIN-FILE INSTANT",
			Run:         runAt,
		},
		"product": {
			Name:        "product",
			Description: "Join several chains into a product view across their key dates",
			Usage:       "chaininspect product [-config FILE] CHAIN-FILE...",
			Run:         runProduct,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "chaininspect version",
			Run:         runVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "chaininspect help [command]",
		},
	}
	commands["help"].Run = func(ctx context.Context, args []string) error {
		return runHelp(commands, args)
	}
	return commands
}

func executeCommand(ctx context.Context, commands map[string]*Command, name string, args []string) {
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", name)
		fmt.Fprintln(os.Stderr, "Run 'chaininspect help' for usage information.")
		os.Exit(ExitUsage)
	}
	if err := cmd.Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

func showHelp(commands map[string]*Command) {
	fmt.Printf("chaininspect %s\n", version)
	fmt.Println("Inspect time-slice chains from the command line.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chaininspect [command]")
	fmt.Println()
	fmt.Println("Available Commands:")
	for _, name := range []string{"at", "product", "version", "help"} {
		if cmd, ok := commands[name]; ok {
			fmt.Printf("  %-10s %s\n", cmd.Name, cmd.Description)
		}
	}
	fmt.Println()
	fmt.Println("Run 'chaininspect help [command]' for more information about a command.")
}

func runHelp(commands map[string]*Command, args []string) error {
	if len(args) == 0 {
		showHelp(commands)
		return nil
	}
	cmd, ok := commands[strings.TrimSpace(args[0])]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	fmt.Printf("Usage: %s\n\n%s\n", cmd.Usage, cmd.Description)
	return nil
}

func runVersion(ctx context.Context, args []string) error {
	fmt.Printf("chaininspect %s (commit %s)\n", version, commit)
	return nil
}
