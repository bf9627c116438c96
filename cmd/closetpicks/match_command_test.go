package main

import (
	"testing"

	"github.com/goccy/go-json"

	"closetpicks/internal/matcher"
	"closetpicks/internal/testsupport"
)

func TestMatchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, testsupport.SampleDataset())

	out, _, err := runCLI(t, env, "match", "Weekend", "--year", "2011")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	requireContains(t, out, "weekend-2011")
	requireContains(t, out, matcher.MethodExact)

	out, _, err = runCLI(t, env, "match", "--json", "--url", "https://www.criterion.com/films/400-stalker", "Anything")
	if err != nil {
		t.Fatalf("match --url: %v", err)
	}
	var got matchOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.FilmID != "stalker-1979" || got.Method != matcher.MethodCriterionURL {
		t.Fatalf("unexpected match: %+v", got)
	}

	out, _, err = runCLI(t, env, "match", "Completely", "Unknown", "Picture")
	if err != nil {
		t.Fatalf("match unknown: %v", err)
	}
	requireContains(t, out, "no catalog entry")
	requireContains(t, out, "Provisional id")
}
