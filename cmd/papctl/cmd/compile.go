package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Deuthe/test-odrl-integration/internal/policy"
)

func newCompileCommand() *cobra.Command {
	var cfg policy.CompilerConfig

	cmd := &cobra.Command{
		Use:   "compile <policy.json|->",
		Short: "Compile a usage policy to Rego without contacting any server",
		Long: `Compile an ODRL usage policy to the Rego module the PAP would publish.

Examples:
  papctl compile policy.json
  cat policy.json | papctl compile -
  papctl compile policy.json --rego-v1 --package authz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readPolicy(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			rule, err := policy.NewCompiler(cfg).Compile(doc)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), rule.Module)
			return err
		},
	}

	cmd.Flags().StringVar(&cfg.Package, "package", policy.DefaultPackage, "Rego package name")
	cmd.Flags().StringVar(&cfg.MethodGuard, "method-guard", policy.DefaultMethodGuard, "HTTP method the rule allows")
	cmd.Flags().StringVar(&cfg.PathPrefix, "path-prefix", policy.DefaultPathPrefix, "Path prefix the rule allows")
	cmd.Flags().BoolVar(&cfg.RegoV1, "rego-v1", false, "Emit OPA 1.0 syntax")
	return cmd
}

// readPolicy decodes a policy document from path, or from stdin for "-".
func readPolicy(stdin io.Reader, path string) (*policy.UsagePolicy, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // operator-supplied path
	}
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}

	var doc policy.UsagePolicy
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing policy %s: %w", path, err)
	}
	return &doc, nil
}
