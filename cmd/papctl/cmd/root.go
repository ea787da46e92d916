// Package cmd implements the papctl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Version is set at build time.
var Version = "dev"

var (
	okFmt   = color.New(color.FgGreen, color.Bold).SprintFunc()
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	infoFmt = color.New(color.FgCyan).SprintFunc()
	evalFmt = color.New(color.FgYellow).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

// options are the global flags shared by every command.
type options struct {
	server  string
	output  string
	timeout time.Duration
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "papctl",
		Short: "Operator CLI for the ODRL policy administration point",
		Long: `papctl compiles ODRL usage policies to Rego, publishes them, requests
test credentials and reads the dashboard event log.

The PAP address defaults to $PAP_URL or http://localhost:3000.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOrDefault("PAP_URL", "http://localhost:3000"),
		"PAP base URL")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json, yaml")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	root.AddCommand(
		newCompileCommand(),
		newPublishCommand(opts),
		newTokenCommand(opts),
		newLogsCommand(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "%s %v\n", errFmt("Error:"), err)
		return err
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// formatOutput writes data in a structured format. It reports false for
// text output, which each command renders itself.
func formatOutput(w io.Writer, format string, data interface{}) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(data)
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return true, err
		}
		_, err = w.Write(out)
		return true, err
	case "text", "":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q", format)
	}
}
