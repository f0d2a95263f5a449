package bot

import "testing"

func TestSkippable(t *testing.T) {
	cases := map[string]string{
		"-":          "",
		" - ":        "",
		"12 rue Foo": "12 rue Foo",
		"  trimmed ": "trimmed",
		"":           "",
	}
	for in, want := range cases {
		if got := skippable(in); got != want {
			t.Errorf("skippable(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOrDash(t *testing.T) {
	if got := orDash(""); got != "—" {
		t.Errorf("orDash(\"\") = %q, want dash", got)
	}
	if got := orDash("   "); got != "—" {
		t.Errorf("orDash(blank) = %q, want dash", got)
	}
	if got := orDash("Acme"); got != "Acme" {
		t.Errorf("orDash(\"Acme\") = %q", got)
	}
}
