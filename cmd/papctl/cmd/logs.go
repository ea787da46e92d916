package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
)

func newLogsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Drain the dashboard event log",
		Long: `Fetch and clear the pending dashboard events. Each call returns only
the events recorded since the previous drain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var events []eventlog.Event
			if err := newPAPClient(opts.server, opts.timeout).do(ctx, http.MethodGet, "/logs", nil, &events); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if handled, err := formatOutput(out, opts.output, events); handled {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(out, dimFmt("no new events"))
				return nil
			}
			for _, e := range events {
				fmt.Fprintf(out, "%s %s\n", dimFmt(e.Timestamp), classFmt(e.StatusClass)(e.Message))
			}
			return nil
		},
	}
}

// classFmt colors a message by its dashboard class.
func classFmt(class eventlog.Class) func(a ...interface{}) string {
	switch class {
	case eventlog.ClassSuccess:
		return okFmt
	case eventlog.ClassFail:
		return errFmt
	case eventlog.ClassEval:
		return evalFmt
	case eventlog.ClassInfo, eventlog.ClassSend:
		return infoFmt
	default:
		return fmt.Sprint
	}
}
