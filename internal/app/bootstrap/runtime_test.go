package bootstrap

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestStartupLogOmitsSecrets(t *testing.T) {
	isolateEnv(t)
	setRequiredEnv(t)
	t.Setenv("SUPER_ADMIN_EMAIL", "root@example.com")
	t.Setenv("SUPER_ADMIN_PASSWORD", "RootPass123")

	cfg, err := LoadConfig("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	var buf bytes.Buffer
	logStartup(slog.New(slog.NewJSONHandler(&buf, nil)), cfg)

	out := buf.String()
	if !strings.Contains(out, "bootstrapping credential service") {
		t.Fatalf("startup line missing: %s", out)
	}
	for _, secret := range []string{"test-signing-key-0123456789abcdef", "RootPass123", "signing_key", "[redacted]"} {
		if strings.Contains(out, secret) {
			t.Fatalf("startup log leaks %q: %s", secret, out)
		}
	}
}
