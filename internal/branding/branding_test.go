package branding

import "testing"

func TestEmbeddedValues(t *testing.T) {
	if got := AppName(); got != "Papercraft" {
		t.Errorf("AppName() = %q, want %q", got, "Papercraft")
	}
	if got := CLIName(); got != "pcrelease" {
		t.Errorf("CLIName() = %q, want %q", got, "pcrelease")
	}
	if got := GitHubRepo(); got == "" {
		t.Error("GitHubRepo() is empty")
	}
}

func TestEnvVar(t *testing.T) {
	if got := EnvVar("workspace"); got != "PCRELEASE_WORKSPACE" {
		t.Errorf("EnvVar(workspace) = %q, want %q", got, "PCRELEASE_WORKSPACE")
	}
}
