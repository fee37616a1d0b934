package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "token")
	if err := os.WriteFile(file, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HH_MATCHER_TEST_SECRET", " from-env ")

	cases := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{File: file, Env: "HH_MATCHER_TEST_SECRET", Value: "inline"}, want: "from-file"},
		{name: "env over value", src: Source{Env: "HH_MATCHER_TEST_SECRET", Value: "inline"}, want: "from-env"},
		{name: "inline", src: Source{Env: "HH_MATCHER_TEST_UNSET", Value: " inline "}, want: "inline"},
		{name: "empty file", src: Source{Name: "hh token", File: empty}, wantErr: "hh token file"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "nope")}, wantErr: "reading secret"},
		{name: "unset env", src: Source{Name: "smtp password", Env: "HH_MATCHER_TEST_UNSET"}, wantErr: "HH_MATCHER_TEST_UNSET is empty"},
		{name: "nothing", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Load(tc.src)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
