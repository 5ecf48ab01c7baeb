package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommandOutput(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	got := out.String()
	if !strings.Contains(got, "vistaar") {
		t.Errorf("output missing binary name: %q", got)
	}
	if !strings.Contains(got, Version) {
		t.Errorf("output missing version %q: %q", Version, got)
	}
	if !strings.Contains(got, "GEMINI_API_KEY") {
		t.Errorf("output missing API key status: %q", got)
	}
}

func TestRootRegistersSubcommands(t *testing.T) {
	want := map[string]bool{"serve": false, "migrate": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
