package normalize

import (
	"testing"
)

// =============================================================================
// Path Tests
// =============================================================================

func TestPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "/api/users", "/api/users"},
		{"template var", "/api/users/${userId}", "/api/users/{userId}"},
		{"multiple template vars", "/api/${org}/repos/${repo.id}", "/api/{org}/repos/{repo.id}"},
		{"single quotes", "'/api/users'", "/api/users"},
		{"double quotes", `"/api/users"`, "/api/users"},
		{"backticks", "`/api/users/${id}`", "/api/users/{id}"},
		{"slash run", "/api//v1///users", "/api/v1/users"},
		{"base url join", "${API_BASE}//users", "{API_BASE}/users"},
		{"nested dollar", "/api/$${id}", "/api/{id}"},
		{"only quotes", `'"'`, ""},
		{"brace form kept", "/api/users/{id}", "/api/users/{id}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Path(tt.in); got != tt.want {
				t.Errorf("Path(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPath_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"/",
		"//",
		"'//api//${a}'",
		"$${a}",
		"$$${b}//x",
		"`${x}`",
		"'${a'}",
		"/v1/${user.id}/items/${ item }",
		"\"'`/api/x`'\"",
		"${}",
		"${${a}}",
		"https://host//api///x",
	}

	for _, in := range inputs {
		once := Path(in)
		twice := Path(once)
		if once != twice {
			t.Errorf("Path not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

// =============================================================================
// SignatureSet Tests
// =============================================================================

func TestDefault_IsCandidate(t *testing.T) {
	s := Default()

	tests := []struct {
		path string
		want bool
	}{
		{"/api/users", true},
		{"/API/Users", true},
		{"/v2/orders", true},
		{"/graphql", true},
		{"/rest/items", true},
		{"/auth/login", true},
		{"/oauth/authorize", true},
		{"/oauth2/token", true},
		{"/rpc/call", true},
		{"/webhooks/github", true},
		{"/users/{id}", true},
		{"/ml-models/run", true},
		{"/model/predict", true},
		{"/session/refresh", true},
		{"/user/profile", true},
		{"'/api/quoted'", true},

		// Non-API paths
		{"/assets/image.png", false},
		{"/static/style.css", false},
		{"/js/script.js", false},
		{"/about", false},
		{"/contact", false},
		{"/products", false},
		{"/downloads/document.pdf", false},
		{"/images/logo.svg", false},
		{"", false},
		{"''", false},

		// Known gaps of the default list
		{"/ws", false},
		{"/login", false},
		{"/api/{{version}}", true},
		{"/{{version}}/users", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := s.IsCandidate(tt.path); got != tt.want {
				t.Errorf("IsCandidate(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestBuild_Extended(t *testing.T) {
	s, err := Build(SignatureConfig{Extended: true})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/ws", true},
		{"/chat/socket", true},
		{"/notifications/stream", true},
		{"/login", true},
		{"/search", true},
		{"/{{version}}/users", true},
		{"/api/users", true},

		// Assets are rejected before signatures.
		{"/api/logo.png", false},
		{"/api/theme.css", false},
		{"/about", false},
		{"/login/help", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := s.IsCandidate(tt.path); got != tt.want {
				t.Errorf("IsCandidate(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestBuild_ExtraAndExclude(t *testing.T) {
	s, err := Build(SignatureConfig{
		Extra:   []string{`^/internal/`},
		Exclude: []string{`/api/health$`},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !s.IsCandidate("/internal/jobs") {
		t.Error("Extra signature should match /internal/jobs")
	}
	if s.IsCandidate("/api/health") {
		t.Error("Excluded path should not be a candidate")
	}
	if !s.IsCandidate("/api/healthz") {
		t.Error("/api/healthz is not excluded")
	}
	if s.Len() != len(DefaultSignatures())+1 {
		t.Errorf("Len() = %d, want %d", s.Len(), len(DefaultSignatures())+1)
	}
}

func TestCompile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
	}{
		{"bad include", []string{`/api/(`}, nil},
		{"bad exclude", []string{`/api/`}, []string{`[`}},
		{"empty include", []string{"  "}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.include, tt.exclude); err == nil {
				t.Error("Compile() should fail")
			}
		})
	}
}
