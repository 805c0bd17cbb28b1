package main

import (
	"testing"
)

func TestStartAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon started")

	waitActive(t, env)

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running")
	requireContains(t, out, "active")
	requireContains(t, out, env.cfg.StaticStoreName())
	requireContains(t, out, env.cfg.DynamicStoreName())
}

func TestStatusWhenDaemonDown(t *testing.T) {
	env := setupCLITestEnv(t)

	// Point the CLI at a socket nobody listens on.
	out, _, err := runCLI(t, []string{"status"}, env.socketPath+".missing", env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
}

func TestVersionAndSkipWaiting(t *testing.T) {
	env := setupCLITestEnv(t)
	startDaemon(t, env)

	out, _, err := runCLI(t, []string{"version"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, env.cfg.StaticStoreName())

	out, _, err = runCLI(t, []string{"skip-waiting"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("skip-waiting: %v", err)
	}
	requireContains(t, out, "Skip requested")
}
