package credential

import (
	"strings"

	"github.com/Deuthe/test-odrl-integration/internal/util"
)

const bearerPrefix = "Bearer "

// ExtractBearer returns the token of a "Bearer <token>" Authorization
// header value. The scheme is matched case-sensitively.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", util.NewError(util.KindAuth, "credential.extract", "missing authorization header")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", util.NewError(util.KindAuth, "credential.extract", "invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", util.NewError(util.KindAuth, "credential.extract", "empty bearer token")
	}
	return token, nil
}
