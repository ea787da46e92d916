package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Deuthe/test-odrl-integration/internal/pdp"
	"github.com/Deuthe/test-odrl-integration/internal/policy"
)

// publishResult is the outcome of a publish.
type publishResult struct {
	Target   string `json:"target" yaml:"target"`
	PolicyID string `json:"policyID,omitempty" yaml:"policyID,omitempty"`
	Status   string `json:"status" yaml:"status"`
}

func newPublishCommand(opts *options) *cobra.Command {
	var (
		opaURL   string
		policyID string
		compiler policy.CompilerConfig
	)

	cmd := &cobra.Command{
		Use:   "publish <policy.json|->",
		Short: "Publish a usage policy through the PAP or straight to OPA",
		Long: `Publish an ODRL usage policy.

By default the document is posted to the PAP, which compiles it and
pushes the module to its PDP. With --opa the policy is compiled locally
and uploaded to the given OPA instance, bypassing the PAP.

Examples:
  papctl publish policy.json
  papctl publish policy.json --server http://pap:3000
  papctl publish policy.json --opa http://localhost:8181 --policy-id eindhoven`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readPolicy(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var result *publishResult
			if opaURL != "" {
				result, err = publishToOPA(ctx, doc, opaURL, policyID, compiler, opts)
			} else {
				result, err = publishToPAP(ctx, doc, opts)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if handled, err := formatOutput(out, opts.output, result); handled {
				return err
			}
			fmt.Fprintf(out, "%s %s %s\n", okFmt("✓"), result.Status, dimFmt("("+result.Target+")"))
			return nil
		},
	}

	cmd.Flags().StringVar(&opaURL, "opa", "", "Upload directly to this OPA base URL instead of the PAP")
	cmd.Flags().StringVar(&policyID, "policy-id", policy.DefaultPolicyID, "OPA module id (with --opa)")
	cmd.Flags().StringVar(&compiler.Package, "package", policy.DefaultPackage, "Rego package name (with --opa)")
	cmd.Flags().StringVar(&compiler.MethodGuard, "method-guard", policy.DefaultMethodGuard,
		"HTTP method the rule allows (with --opa)")
	cmd.Flags().StringVar(&compiler.PathPrefix, "path-prefix", policy.DefaultPathPrefix,
		"Path prefix the rule allows (with --opa)")
	cmd.Flags().BoolVar(&compiler.RegoV1, "rego-v1", false, "Emit OPA 1.0 syntax (with --opa)")
	return cmd
}

func publishToPAP(ctx context.Context, doc *policy.UsagePolicy, opts *options) (*publishResult, error) {
	var resp struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	client := newPAPClient(opts.server, opts.timeout)
	if err := client.do(ctx, http.MethodPost, "/policies", doc, &resp); err != nil {
		return nil, err
	}
	return &publishResult{Target: opts.server, Status: resp.Status}, nil
}

func publishToOPA(
	ctx context.Context,
	doc *policy.UsagePolicy,
	opaURL, policyID string,
	cfg policy.CompilerConfig,
	opts *options,
) (*publishResult, error) {
	compiler := policy.NewCompiler(cfg)
	client, err := pdp.NewClient(pdp.Config{
		URL:          opaURL,
		DecisionPath: compiler.DecisionPath(),
		Timeout:      opts.timeout,
	})
	if err != nil {
		return nil, err
	}

	svc := policy.NewService(compiler, client, policy.WithPolicyID(policyID))
	if _, err := svc.Apply(ctx, doc); err != nil {
		return nil, err
	}
	return &publishResult{Target: opaURL, PolicyID: svc.PolicyID(), Status: "Policy Active"}, nil
}
