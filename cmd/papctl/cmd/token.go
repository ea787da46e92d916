package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Deuthe/test-odrl-integration/internal/credential"
)

func newTokenCommand(opts *options) *cobra.Command {
	var role, jurisdiction string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Request a bearer token for a set of wallet attributes",
		Long: `Request a signed bearer token from the PAP, presenting a single
credential with the given role and jurisdiction.

Examples:
  papctl token --role Inwoner --jurisdiction Eindhoven
  TOKEN=$(papctl token --role Inwoner --jurisdiction Eindhoven)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			req := &credential.TokenRequest{
				Credentials: []credential.PresentedCredential{{
					PresentedAttributes: map[string]interface{}{
						credential.ClaimRole:         role,
						credential.ClaimJurisdiction: jurisdiction,
					},
				}},
			}

			var resp struct {
				Token string `json:"token" yaml:"token"`
			}
			if err := newPAPClient(opts.server, opts.timeout).do(ctx, http.MethodPost, "/auth/token", req, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if handled, err := formatOutput(out, opts.output, resp); handled {
				return err
			}
			_, err := fmt.Fprintln(out, resp.Token)
			return err
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Role attribute")
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "Jurisdiction attribute")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("jurisdiction")
	return cmd
}
