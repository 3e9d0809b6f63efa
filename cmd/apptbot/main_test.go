package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/m3rciful/apptbot/core/buildinfo"
)

func TestVersionCmd(t *testing.T) {
	orig := buildinfo.Version
	buildinfo.Version = "1.2.3"
	defer func() { buildinfo.Version = orig }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})
	if code := execute(cmd); code != 0 {
		t.Fatalf("exit code = %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "apptbot 1.2.3") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "setup", "migrate", "list", "version"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Fatalf("subcommand %s missing: %v", name, err)
		}
	}
	serve, _, _ := cmd.Find([]string{"serve"})
	if serve.Flags().Lookup("setup") == nil {
		t.Fatal("serve --setup flag missing")
	}
	list, _, _ := cmd.Find([]string{"list"})
	if list.Flags().Lookup("user") == nil {
		t.Fatal("list --user flag missing")
	}
	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Fatal("--config flag missing")
	}
}

func TestUnknownArgsFail(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"migrate", "extra"})
	if code := execute(cmd); code == 0 {
		t.Fatal("expected failure for unexpected argument")
	}
}
