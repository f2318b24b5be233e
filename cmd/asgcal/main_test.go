package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTemplateCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	inputDir := filepath.Join(dir, "in")
	configPath := filepath.Join(dir, "asgcal.json")
	if err := os.WriteFile(configPath, []byte(`{"input_dir": "`+inputDir+`"}`), 0644); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--config", configPath, "template"}, args...))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("template command returned an error: %v\n%s", err, out.String())
		}
		return out.String()
	}

	if out := run(); !strings.Contains(out, "Wrote template") {
		t.Errorf("Expected the template to be written, got %q", out)
	}

	data, err := os.ReadFile(filepath.Join(inputDir, "template.csv"))
	if err != nil {
		t.Fatalf("Failed to read template: %v", err)
	}
	if strings.TrimSpace(string(data)) != "course_key,course_name,asg_name,asg_desc,due_date,due_location" {
		t.Errorf("Unexpected template content %q", data)
	}

	if out := run(); !strings.Contains(out, "already exists") {
		t.Errorf("Expected the existing template to be kept, got %q", out)
	}
	if out := run("--force"); !strings.Contains(out, "Wrote template") {
		t.Errorf("Expected --force to replace the template, got %q", out)
	}
}

func TestOperationCommand_RequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("GOOGLE_CREDENTIALS_PATH", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"list"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("list without credentials should have returned an error")
	}
	if !strings.Contains(err.Error(), "google_credentials_path") {
		t.Errorf("Expected a credentials error, got %v", err)
	}
}

func TestAppClose(t *testing.T) {
	var logs bytes.Buffer
	var order []string
	a := &app{
		log: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		closers: []func() error{
			func() error { order = append(order, "log"); return nil },
			func() error { order = append(order, "store"); return errors.New("database is locked") },
		},
	}

	a.close()

	if strings.Join(order, ",") != "store,log" {
		t.Errorf("Expected closers in reverse order, got %v", order)
	}
	if !strings.Contains(logs.String(), "database is locked") {
		t.Errorf("Expected the close error to be logged, got %q", logs.String())
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
