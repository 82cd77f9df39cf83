package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewSelfUpdateCmd(t *testing.T) {
	selfUpdateCmd := newSelfUpdateCmd()

	if selfUpdateCmd.Use != "self-update" {
		t.Errorf("Expected Use to be 'self-update', got %s", selfUpdateCmd.Use)
	}

	if selfUpdateCmd.RunE == nil {
		t.Error("Expected RunE function to be set")
	}
}

func TestRunSelfUpdateWithDevVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	for _, v := range []string{"dev", ""} {
		rootCmd.Version = v

		err := runSelfUpdate(nil, []string{})
		if err == nil {
			t.Fatalf("Expected error for version %q", v)
		}
		if !strings.Contains(err.Error(), "cannot self-update a development version") {
			t.Errorf("Expected specific error message, got: %s", err.Error())
		}
	}
}

func TestRunSelfUpdateWithoutReleaseRepo(t *testing.T) {
	originalVersion := rootCmd.Version
	originalRepo := releaseRepo
	defer func() {
		rootCmd.Version = originalVersion
		releaseRepo = originalRepo
	}()

	rootCmd.Version = "1.0.0"
	SetReleaseRepo("  ")

	err := runSelfUpdate(newSelfUpdateCmd(), []string{})
	if err == nil {
		t.Fatal("Expected error when no release repository is configured")
	}
	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("Expected specific error message, got: %s", err.Error())
	}
}

func TestSetReleaseRepo(t *testing.T) {
	originalRepo := releaseRepo
	defer func() { releaseRepo = originalRepo }()

	SetReleaseRepo(" owner/dsclients ")
	if releaseRepo != "owner/dsclients" {
		t.Errorf("Expected trimmed slug, got %q", releaseRepo)
	}
}

func TestSelfUpdateCommandHelp(t *testing.T) {
	selfUpdateCmd := newSelfUpdateCmd()
	var buf bytes.Buffer
	selfUpdateCmd.SetOut(&buf)
	selfUpdateCmd.SetErr(&buf)
	selfUpdateCmd.SetArgs([]string{"--help"})

	if err := selfUpdateCmd.Execute(); err != nil {
		t.Fatalf("Error executing self-update help: %v", err)
	}

	if !strings.Contains(buf.String(), "Checks for the latest release") {
		t.Errorf("Help output should contain long description. Got: %q", buf.String())
	}
}
