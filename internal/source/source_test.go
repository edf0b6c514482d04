package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func noBeautify() Config {
	cfg := DefaultConfig()
	cfg.Beautify = false
	return cfg
}

// ============================================================================
// Decode Tests
// ============================================================================

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		want     string
		encoding string
	}{
		{"ascii", []byte("fetch('/api/a')"), "fetch('/api/a')", EncodingUTF8},
		{"utf8", []byte("const s = 'héllo'"), "const s = 'héllo'", EncodingUTF8},
		{"latin1", []byte{'c', 'a', 'f', 0xe9}, "café", EncodingLatin1},
		{"empty", nil, "", EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc := Decode(tt.data)
			if got != tt.want {
				t.Errorf("Decode() text = %q, want %q", got, tt.want)
			}
			if enc != tt.encoding {
				t.Errorf("Decode() encoding = %q, want %q", enc, tt.encoding)
			}
		})
	}
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"a", 1},
		{"a\nb", 2},
		{"a\nb\n", 3},
	}
	for _, tt := range tests {
		if got := LineCount(tt.text); got != tt.want {
			t.Errorf("LineCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestIsHTML(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"index.html", true},
		{"INDEX.HTM", true},
		{"page.xhtml", true},
		{"app.js", false},
		{"bundle.min.js", false},
		{"html", false},
	}
	for _, tt := range tests {
		if got := IsHTML(tt.path); got != tt.want {
			t.Errorf("IsHTML(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

// ============================================================================
// ExtractScripts Tests
// ============================================================================

func TestExtractScripts(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head>
  <script src="/static/app.js"></script>
  <script>fetch('/api/users')</script>
  <script type="application/ld+json">{"url": "/not/js"}</script>
</head>
<body>
  <script type="module">axios.post('/api/login')</script>
  <script>   </script>
</body>
</html>`

	got, n, err := ExtractScripts(page)
	if err != nil {
		t.Fatalf("ExtractScripts() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ExtractScripts() count = %d, want 2", n)
	}
	want := "fetch('/api/users')\naxios.post('/api/login')"
	if got != want {
		t.Errorf("ExtractScripts() = %q, want %q", got, want)
	}
}

func TestExtractScripts_NoScripts(t *testing.T) {
	got, n, err := ExtractScripts("<html><body><p>hi</p></body></html>")
	if err != nil {
		t.Fatalf("ExtractScripts() error = %v", err)
	}
	if got != "" || n != 0 {
		t.Errorf("ExtractScripts() = (%q, %d), want empty", got, n)
	}
}

// ============================================================================
// Beautify Tests
// ============================================================================

func TestBeautify(t *testing.T) {
	code := "function load(){fetch('/api/items');var n=1;if(n){n++}}"

	got, err := Beautify(code)
	if err != nil {
		t.Fatalf("Beautify() error = %v", err)
	}
	if LineCount(got) <= 1 {
		t.Errorf("Beautify() produced a single line: %q", got)
	}
	if !strings.Contains(got, "fetch('/api/items')") {
		t.Errorf("Beautify() lost the call: %q", got)
	}
}

// ============================================================================
// Loader Tests
// ============================================================================

func TestLoader_Load(t *testing.T) {
	body := "line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\nline9\nline10\n"
	path := writeFile(t, "app.js", []byte(body))

	src, err := NewLoader(DefaultConfig(), nil).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.Text != body {
		t.Errorf("Load() text changed for a file above the threshold")
	}
	if src.Beautified {
		t.Error("Load() Beautified = true, want false")
	}
	if src.Encoding != EncodingUTF8 {
		t.Errorf("Load() encoding = %q, want %q", src.Encoding, EncodingUTF8)
	}
	if src.Path != path {
		t.Errorf("Load() path = %q, want %q", src.Path, path)
	}
}

func TestLoader_Load_BeautifiesMinified(t *testing.T) {
	path := writeFile(t, "app.min.js", []byte("function a(){fetch('/api/x');return 1}function b(){return 2}"))

	src, err := NewLoader(DefaultConfig(), nil).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !src.Beautified {
		t.Fatal("Load() Beautified = false, want true")
	}
	if LineCount(src.Text) <= 1 {
		t.Errorf("Load() text still a single line: %q", src.Text)
	}
}

func TestLoader_Load_BeautifyDisabled(t *testing.T) {
	code := "function a(){fetch('/api/x')}"
	path := writeFile(t, "app.min.js", []byte(code))

	src, err := NewLoader(noBeautify(), nil).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.Text != code || src.Beautified {
		t.Errorf("Load() = (%q, %v), want original text", src.Text, src.Beautified)
	}
}

func TestLoader_Load_Latin1(t *testing.T) {
	path := writeFile(t, "legacy.js", []byte{'/', '/', ' ', 0xe9, '\n'})

	src, err := NewLoader(noBeautify(), nil).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.Encoding != EncodingLatin1 {
		t.Errorf("Load() encoding = %q, want %q", src.Encoding, EncodingLatin1)
	}
	if src.Text != "// é\n" {
		t.Errorf("Load() text = %q, want %q", src.Text, "// é\n")
	}
}

func TestLoader_Load_HTML(t *testing.T) {
	page := `<html><body><script>fetch('/api/a')</script><script src="x.js"></script></body></html>`
	path := writeFile(t, "index.html", []byte(page))

	src, err := NewLoader(noBeautify(), nil).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.Text != "fetch('/api/a')" {
		t.Errorf("Load() text = %q, want %q", src.Text, "fetch('/api/a')")
	}
	if src.Scripts != 1 {
		t.Errorf("Load() scripts = %d, want 1", src.Scripts)
	}
}

func TestLoader_Load_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.js")

	_, err := NewLoader(DefaultConfig(), nil).Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
	if got := apperrors.GetErrorType(err); got != apperrors.Source {
		t.Errorf("GetErrorType() = %v, want %v", got, apperrors.Source)
	}
}

func TestLoader_Load_Empty(t *testing.T) {
	path := writeFile(t, "empty.js", nil)

	src, err := NewLoader(DefaultConfig(), nil).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.Text != "" || src.Beautified {
		t.Errorf("Load() = (%q, %v), want empty and untouched", src.Text, src.Beautified)
	}
}

func TestNewLoader_ThresholdDefault(t *testing.T) {
	l := NewLoader(Config{Beautify: true}, nil)
	if l.cfg.BeautifyThreshold != DefaultBeautifyThreshold {
		t.Errorf("BeautifyThreshold = %d, want %d", l.cfg.BeautifyThreshold, DefaultBeautifyThreshold)
	}
}
