package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name   string
	values map[string]string
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.values[ref], nil
}

func TestParseSecretRef(t *testing.T) {
	provider, ref, ok := ParseSecretRef("secretref:env:SUBNET_AGENT_API_KEY")
	if !ok || provider != "env" || ref != "SUBNET_AGENT_API_KEY" {
		t.Fatalf("ParseSecretRef() = %q, %q, %v", provider, ref, ok)
	}
	for _, bad := range []string{"plain", "secretref:", "secretref:env", "secretref::x"} {
		if _, _, ok := ParseSecretRef(bad); ok {
			t.Errorf("ParseSecretRef(%q) should fail", bad)
		}
	}
}

func TestResolver_EnvRef(t *testing.T) {
	t.Setenv("SUBNET_AGENT_API_KEY", " from-env \n")
	got, err := DefaultResolver().ResolveValue(context.Background(), "secretref:env:SUBNET_AGENT_API_KEY")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "from-env" {
		t.Fatalf("ResolveValue() = %q, want from-env", got)
	}
}

func TestResolver_UnsetEnvIsEmptyWhenLenient(t *testing.T) {
	got, err := DefaultResolver().ResolveValue(context.Background(), "secretref:env:SUBNET_UNSET_FOR_TEST")
	if err != nil || got != "" {
		t.Fatalf("ResolveValue() = %q, %v; want empty, nil", got, err)
	}
}

func TestResolver_FileRef(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("file-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := DefaultResolver().ResolveValue(context.Background(), "secretref:file:"+path)
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "file-key" {
		t.Fatalf("ResolveValue() = %q, want file-key", got)
	}

	missing, err := DefaultResolver().ResolveValue(context.Background(), "secretref:file:"+path+".missing")
	if err != nil || missing != "" {
		t.Fatalf("missing file: %q, %v", missing, err)
	}
}

func TestResolver_Literal(t *testing.T) {
	t.Setenv("NODE", "n1")
	got, err := DefaultResolver().ResolveValue(context.Background(), "key-${NODE}")
	if err != nil || got != "key-n1" {
		t.Fatalf("ResolveValue() = %q, %v", got, err)
	}
}

func TestResolver_StrictEmptyProviderValueErrors(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{}})
	if _, err := r.ResolveValue(context.Background(), "secretref:stub:empty"); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolver_UnknownProvider(t *testing.T) {
	if _, err := DefaultResolver().ResolveValue(context.Background(), "secretref:vault:x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolver_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("explode")
	r := NewResolver(false, &stubProvider{name: "stub", err: boom})
	f := r.Func("secretref:stub:x")
	if _, err := f(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
}
