package namespace

import "testing"

func TestBuildUsername(t *testing.T) {
	got := BuildUsername("acme", "alice")
	if got != "acme_alice" {
		t.Fatalf("got %q, want %q", got, "acme_alice")
	}
}

func TestBuildGroupname(t *testing.T) {
	got := BuildGroupname("acme", 42)
	if got != "acme_42" {
		t.Fatalf("got %q, want %q", got, "acme_42")
	}
}

func TestExtractLocalUsernameRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		tenant   string
		username string
	}{
		{"plain", "acme", "alice"},
		{"underscore in username", "acme", "al_ice"},
		{"multiple underscores", "acme", "a_l_i_c_e"},
		{"numeric", "isp9", "100234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLocalUsername(BuildUsername(tt.tenant, tt.username))
			if got != tt.username {
				t.Fatalf("got %q, want %q", got, tt.username)
			}
		})
	}
}

func TestExtractLocalUsernameNoSeparator(t *testing.T) {
	if got := ExtractLocalUsername("alice"); got != "alice" {
		t.Fatalf("got %q, want %q", got, "alice")
	}
}

func TestTenantPrefix(t *testing.T) {
	if got := TenantPrefix("acme"); got != `acme\_%` {
		t.Fatalf("got %q, want %q", got, `acme\_%`)
	}
}
