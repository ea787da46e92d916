package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Deuthe/test-odrl-integration/internal/util"
)

// ValidationErrors collects every problem found in a configuration.
type ValidationErrors []*util.ConfigError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Is reports whether target is util.ErrConfigInvalid.
func (e ValidationErrors) Is(target error) bool {
	return target == util.ErrConfigInvalid
}

type validator struct {
	errors ValidationErrors
}

func (v *validator) add(field, message string) {
	v.errors = append(v.errors, util.NewConfigError(field, message))
}

func (v *validator) check(field string, err error) {
	if err != nil {
		v.errors = append(v.errors, util.NewConfigErrorWithCause(field, err.Error(), err))
	}
}

// Validate checks the configuration. It expects defaults to have been
// applied and returns ValidationErrors when anything is wrong.
func (c *Config) Validate() error {
	v := &validator{}

	v.check("server.port", util.ValidatePort(c.Server.Port))
	if c.Server.MaxBodyBytes < 0 {
		v.add("server.maxBodyBytes", "cannot be negative")
	}

	v.check("pdp.url", util.ValidateURL(c.PDP.URL))
	v.check("pdp.policyID", util.ValidateNonEmpty(c.PDP.PolicyID, "policy id"))
	if strings.Contains(c.PDP.PolicyID, "/") {
		v.add("pdp.policyID", "must not contain '/'")
	}
	v.check("pdp.decisionPath", util.ValidateNonEmpty(c.PDP.DecisionPath, "decision path"))
	v.check("pdp.timeout", util.ValidateNonNegativeDuration(c.PDP.Timeout.Duration()))

	v.check("policy.package", util.ValidateNonEmpty(c.Policy.Package, "package"))
	v.check("policy.methodGuard", util.ValidateHTTPMethod(c.Policy.MethodGuard))
	validatePathPrefix(v, c.Policy.PathPrefix)

	v.check("backend.baseURL", util.ValidateURL(c.Backend.BaseURL))
	v.check("backend.timeout", util.ValidateNonNegativeDuration(c.Backend.Timeout.Duration()))
	if cb := c.Backend.CircuitBreaker; cb.Enabled && (cb.FailureRatio <= 0 || cb.FailureRatio > 1) {
		v.add("backend.circuitBreaker.failureRatio", "must be in (0, 1]")
	}
	v.check("upstream.timeout", util.ValidateNonNegativeDuration(c.Upstream.Timeout.Duration()))

	c.validateResources(v)

	v.check("credential.subjectKey", util.ValidateNonEmpty(c.Credential.SubjectKey, "subject key"))
	if c.Vault.Enabled {
		v.check("vault.address", util.ValidateURL(c.Vault.Address))
		v.check("vault.path", util.ValidateNonEmpty(c.Vault.Path, "vault path"))
	}

	if c.EventLog.Capacity < 1 {
		v.add("eventLog.capacity", "must be at least 1")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1) {
		v.add("rateLimit", "requestsPerSecond and burst must be positive")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		v.add("tracing.samplingRate", "must be between 0 and 1")
	}

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (c *Config) validateResources(v *validator) {
	if len(c.Resources) == 0 {
		v.add("resources", "at least one resource is required")
		return
	}

	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := "resources." + name
		locator := c.Resources[name]
		switch {
		case name == "" || strings.Contains(name, "/"):
			v.add(field, "name must be a single non-empty path segment")
		case strings.TrimSpace(locator) == "":
			v.add(field, "locator cannot be empty")
		default:
			if u, err := url.Parse(locator); err != nil {
				v.check(field, err)
			} else if u.IsAbs() {
				v.check(field, util.ValidateURL(locator))
			}
		}
	}
}

// reservedSegments are first path segments owned by other routes.
var reservedSegments = map[string]bool{
	"policies": true, "auth": true, "logs": true,
	"health": true, "live": true, "ready": true, "metrics": true,
}

// validatePathPrefix checks that the prefix both names the /data route
// and matches what compiled policies compare input.path against.
func validatePathPrefix(v *validator, prefix string) {
	switch {
	case !strings.HasPrefix(prefix, "/"):
		v.add("policy.pathPrefix", "must start with '/'")
	case !strings.HasSuffix(prefix, "/") || len(prefix) < 3 || strings.Contains(prefix, "//"):
		v.add("policy.pathPrefix", "must be a path like /data/ ending in '/'")
	case strings.ContainsAny(prefix, ":*?#\""):
		v.add("policy.pathPrefix", "must not contain route wildcards or quotes")
	case reservedSegments[strings.SplitN(prefix[1:], "/", 2)[0]]:
		v.add("policy.pathPrefix", "collides with a built-in route")
	}
}
