package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves references against the process environment. An unset
// variable resolves to the empty string.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an environment provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve returns the value of the environment variable ref.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, _ := p.lookup(ref)
	return strings.TrimSpace(v), nil
}

// FileProvider reads secrets from files, as mounted by container runtimes.
// A missing file resolves to the empty string.
type FileProvider struct{}

// NewFileProvider creates a file provider.
func NewFileProvider() *FileProvider {
	return &FileProvider{}
}

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve returns the trimmed contents of the file at ref.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimSpace(string(data)), nil
}

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
