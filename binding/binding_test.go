package binding

import "testing"

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"title":    "Road",
		"revision": "abc123",
		"columns":  72,
		"project": map[string]any{
			"sources": []any{
				map[string]any{"title": "Prologue"},
			},
		},
		"env": map[string]string{"USER": "ann"},
	}

	tests := []struct {
		in   string
		want string
	}{
		{"Draft ${revision}", "Draft abc123"},
		{"${title} at ${columns}", "Road at 72"},
		{"${ project.sources[0].title }", "Prologue"},
		{"by ${env.USER}", "by ann"},
		{"${missing} stays", "${missing} stays"},
		{"${project.sources[3].title}", "${project.sources[3].title}"},
		{"${title[0]}", "${title[0]}"},
		{"${}", "${}"},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		if got := Interpolate(tt.in, data); got != tt.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInterpolateWithoutData(t *testing.T) {
	if got := Interpolate("Draft ${revision}", nil); got != "Draft ${revision}" {
		t.Fatalf("expected text unchanged, got %q", got)
	}
}

func TestLookupMalformedIndex(t *testing.T) {
	data := map[string]any{"list": []any{"a"}}
	for _, path := range []string{"list[x]", "list[0", "list.", "list[0]x"} {
		if _, ok := Lookup(data, path); ok {
			t.Fatalf("expected %q to fail", path)
		}
	}
	if v, ok := Lookup(data, "list[0]"); !ok || v != "a" {
		t.Fatalf("expected a, got %v", v)
	}
}
