package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

const dollarSentinel = "\x00SUBNET_SECRET_DOLLAR\x00"

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded via os.ExpandEnv.
//   - If `${VAR}` is present but VAR is missing from the environment, it errors.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	var missing []string
	seen := make(map[string]bool)
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		key := match[1]
		if _, ok := os.LookupEnv(key); !ok && !seen[key] {
			seen[key] = true
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), dollarSentinel, "$"), nil
}

// ExpandEnv is the lenient form of ExpandEnvStrict: missing variables expand
// to the empty string.
func ExpandEnv(s string) string {
	s = strings.ReplaceAll(s, "$$", dollarSentinel)
	return strings.ReplaceAll(os.ExpandEnv(s), dollarSentinel, "$")
}
