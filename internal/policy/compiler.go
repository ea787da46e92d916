package policy

import (
	"fmt"
	"strings"

	"github.com/Deuthe/test-odrl-integration/internal/util"
)

// Compiler defaults.
const (
	DefaultPackage     = "httpauthz"
	DefaultMethodGuard = "GET"
	DefaultPathPrefix  = "/data/"
)

const indent = "    "

// CompilerConfig shapes the generated module.
type CompilerConfig struct {
	Package     string
	MethodGuard string
	PathPrefix  string
	// RegoV1 emits the OPA 1.0 syntax (":=" and "if") instead of the
	// legacy "=" form.
	RegoV1 bool
}

// Compiler turns usage policies into Rego. It is stateless and safe for
// concurrent use.
type Compiler struct {
	config CompilerConfig
}

// NewCompiler creates a compiler, filling empty fields with defaults.
func NewCompiler(cfg CompilerConfig) *Compiler {
	if cfg.Package == "" {
		cfg.Package = DefaultPackage
	}
	if cfg.MethodGuard == "" {
		cfg.MethodGuard = DefaultMethodGuard
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultPathPrefix
	}
	cfg.MethodGuard = strings.ToUpper(cfg.MethodGuard)
	return &Compiler{config: cfg}
}

// Compile renders doc. Output is byte-identical for identical input.
func (c *Compiler) Compile(doc *UsagePolicy) (*CompiledRule, error) {
	if doc == nil {
		return nil, util.NewError(util.KindValidation, "policy.compile", "policy document is required")
	}

	constraints := doc.Constraints()

	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s\n\n", c.config.Package)
	if c.config.RegoV1 {
		sb.WriteString("import rego.v1\n\n")
		sb.WriteString("default decision := false\n\n")
		sb.WriteString("decision := true if {\n")
	} else {
		sb.WriteString("default decision = false\n\n")
		sb.WriteString("decision = true {\n")
	}

	for _, ct := range constraints {
		fmt.Fprintf(&sb, "%sinput.attributes[\"%s\"] == \"%s\"\n", indent, ct.LeftOperand, ct.RightOperand)
	}
	fmt.Fprintf(&sb, "%sinput.method == \"%s\"\n", indent, c.config.MethodGuard)
	fmt.Fprintf(&sb, "%sstartswith(input.path, \"%s\")\n", indent, c.config.PathPrefix)
	sb.WriteString("}")

	return &CompiledRule{
		Module:     sb.String(),
		Package:    c.config.Package,
		Predicates: len(constraints),
	}, nil
}

// DecisionPath returns the data path that evaluates the compiled rule.
func (c *Compiler) DecisionPath() string {
	return DecisionPath(c.config.Package)
}

// DecisionPath maps a Rego package name to its decision document path.
func DecisionPath(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/") + "/decision"
}
