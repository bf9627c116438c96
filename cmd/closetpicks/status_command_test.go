package main

import (
	"testing"

	"closetpicks/internal/testsupport"
)

func TestStatusShowsDatasetAndRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, testsupport.SampleDataset())

	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Dataset ==")
	requireContains(t, out, "[INFO] 4")
	requireContains(t, out, "[WARN] api key not configured")
	requireContains(t, out, "[INFO] never")
	requireContains(t, out, "[OK] free")

	if _, _, err := runCLI(t, env, "reconcile"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	out, _, err = runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status after run: %v", err)
	}
	requireContains(t, out, "[OK] succeeded")
}
