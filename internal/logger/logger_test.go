package logger

import "testing"

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		lg, err := New(env)
		if err != nil {
			t.Fatalf("env %q: unexpected error: %v", env, err)
		}
		if lg == nil {
			t.Fatalf("env %q: expected logger", env)
		}
	}
}

func TestMaskIdentity(t *testing.T) {
	cases := map[string]string{
		"":              "***",
		"abcd":          "***",
		"192.168.1.100": "19***00",
		"secret123":     "se***23",
	}
	for in, want := range cases {
		if got := MaskIdentity(in); got != want {
			t.Fatalf("MaskIdentity(%q) = %q, want %q", in, got, want)
		}
	}
}
