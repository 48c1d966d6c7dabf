package passthrough

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/Kenerlee/skillbridge/pkg/auth"
)

func TestBearerKey(t *testing.T) {
	a := &Authenticator{ServiceTier: "standard"}
	r, _ := http.NewRequest("POST", "/invoke", nil)
	r.Header.Set("Authorization", "Bearer sk-ant-caller")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Identity.UpstreamKey != "sk-ant-caller" {
		t.Errorf("UpstreamKey = %q, want %q", result.Identity.UpstreamKey, "sk-ant-caller")
	}
	if result.Identity.ServiceTier != "standard" {
		t.Errorf("ServiceTier = %q, want %q", result.Identity.ServiceTier, "standard")
	}
	if result.Identity.TenantID() != result.Identity.Subject {
		t.Errorf("TenantID = %q, want subject %q", result.Identity.TenantID(), result.Identity.Subject)
	}
	if strings.Contains(result.Identity.Subject, "caller") {
		t.Errorf("Subject %q leaks the key", result.Identity.Subject)
	}
}

func TestXAPIKeyHeader(t *testing.T) {
	a := &Authenticator{}
	r, _ := http.NewRequest("POST", "/invoke", nil)
	r.Header.Set("X-API-Key", "sk-ant-other")

	result := a.Authenticate(context.Background(), r)

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Identity.Subject != Subject("sk-ant-other") {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, Subject("sk-ant-other"))
	}
	if result.Identity.ServiceTier != auth.DefaultTier {
		t.Errorf("ServiceTier = %q, want %q", result.Identity.ServiceTier, auth.DefaultTier)
	}
}

func TestNoKeyAbstains(t *testing.T) {
	a := &Authenticator{}
	r, _ := http.NewRequest("GET", "/skills", nil)

	if got := a.Authenticate(context.Background(), r).Decision; got != auth.Abstain {
		t.Fatalf("Decision = %d, want Abstain", got)
	}
}

func TestRequirePrefix(t *testing.T) {
	a := &Authenticator{RequirePrefix: true}
	r, _ := http.NewRequest("GET", "/skills", nil)
	r.Header.Set("Authorization", "Bearer not-a-key")

	if got := a.Authenticate(context.Background(), r).Decision; got != auth.No {
		t.Fatalf("Decision = %d, want No", got)
	}
}

func TestSubjectStable(t *testing.T) {
	if Subject("sk-ant-a") != Subject("sk-ant-a") {
		t.Error("Subject not stable for the same key")
	}
	if Subject("sk-ant-a") == Subject("sk-ant-b") {
		t.Error("Subject collides for different keys")
	}
	if !strings.HasPrefix(Subject("sk-ant-a"), "key_") {
		t.Errorf("Subject = %q, want key_ prefix", Subject("sk-ant-a"))
	}
}
