package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/hazyhaar/webtext/page"
	"github.com/hazyhaar/webtext/page/pagetest"
)

func TestClassify_DefaultsToStandard(t *testing.T) {
	h := pagetest.New()
	c := New(Config{})

	res, err := c.Classify(context.Background(), h, "https://example.test/article")
	if err != nil {
		t.Fatal(err)
	}
	if res.Tier != Standard {
		t.Fatalf("tier: got %s", res.Tier)
	}
	if res.Score != 0 || res.EscalationScore != 0 {
		t.Fatalf("scores: got %d/%d", res.Score, res.EscalationScore)
	}
}

func TestClassify_FrameworkAndRoutingMakeSPA(t *testing.T) {
	h := pagetest.New().
		Respond("matched.push", []string{"react"}).
		Respond("history.pushState", true)
	c := New(Config{})

	res, err := c.Classify(context.Background(), h, "https://app.test/")
	if err != nil {
		t.Fatal(err)
	}
	if res.Tier != SPA {
		t.Fatalf("tier: got %s, score %d", res.Tier, res.Score)
	}
	if res.Score != 3 { // react 2 + routing 1
		t.Fatalf("score: got %d", res.Score)
	}
	wantSignals(t, res.Signals, "framework:react", "client-routing")
}

func TestClassify_FrameworkFamilyCountsOnce(t *testing.T) {
	// The probe reports each matched family once however many markers hit;
	// two distinct families score independently.
	h := pagetest.New().
		Respond("matched.push", []string{"react", "vue"})
	c := New(Config{})

	res, err := c.Classify(context.Background(), h, "https://app.test/")
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 4 {
		t.Fatalf("score: got %d", res.Score)
	}
}

func TestClassify_EscalationToUltra(t *testing.T) {
	// Placeholder (3) + short body (2) clears the default threshold of 4.
	h := pagetest.New().
		Respond("domNonEmpty", map[string]any{
			"placeholder": true,
			"bodyLen":     40,
			"domNonEmpty": true,
		})
	c := New(Config{})

	res, err := c.Classify(context.Background(), h, "https://app.test/")
	if err != nil {
		t.Fatal(err)
	}
	if res.Tier != UltraComplexSPA {
		t.Fatalf("tier: got %s, escalation %d", res.Tier, res.EscalationScore)
	}
	if res.EscalationScore != 5 {
		t.Fatalf("escalation: got %d", res.EscalationScore)
	}
	wantSignals(t, res.Signals, "placeholder-text", "short-body")
}

func TestClassify_EscalationScoredIndependently(t *testing.T) {
	// A strong base score alone never escalates past SPA.
	h := pagetest.New().
		Respond("matched.push", []string{"react", "vue", "angular"}).
		Respond("history.pushState", true).
		Respond(".loading", true)
	c := New(Config{})

	res, err := c.Classify(context.Background(), h, "https://app.test/")
	if err != nil {
		t.Fatal(err)
	}
	if res.Tier != SPA {
		t.Fatalf("tier: got %s", res.Tier)
	}
	if res.EscalationScore != 0 {
		t.Fatalf("escalation: got %d", res.EscalationScore)
	}
}

func TestClassify_DifficultDomainSignal(t *testing.T) {
	h := pagetest.New()
	c := New(Config{})

	res, err := c.Classify(context.Background(), h, "https://kmap.eu/app/browser")
	if err != nil {
		t.Fatal(err)
	}
	if res.EscalationScore != 1 {
		t.Fatalf("escalation: got %d", res.EscalationScore)
	}
	wantSignals(t, res.Signals, "difficult-domain")
}

func TestClassify_ProbeErrorIsAbsentSignal(t *testing.T) {
	h := pagetest.New().
		RespondFunc("matched.push", func(string) (any, error) {
			return nil, fmt.Errorf("ReferenceError: window is not defined")
		}).
		Respond("history.pushState", true)
	c := New(Config{})

	res, err := c.Classify(context.Background(), h, "https://example.test/")
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 1 {
		t.Fatalf("score: got %d, want routing only", res.Score)
	}
}

func TestClassify_HandleFaultPropagates(t *testing.T) {
	h := pagetest.New().
		RespondFunc("matched.push", func(string) (any, error) {
			return nil, fmt.Errorf("%w: target closed", page.ErrHandleInvalid)
		})
	c := New(Config{})

	if _, err := c.Classify(context.Background(), h, "https://example.test/"); !page.IsFatal(err) {
		t.Fatalf("want handle fault, got %v", err)
	}
}

func TestTierString(t *testing.T) {
	if Standard.String() != "standard" || SPA.String() != "spa" || UltraComplexSPA.String() != "ultra_complex_spa" {
		t.Fatal("tier names changed")
	}
}

func TestLoadTables_Defaults(t *testing.T) {
	tbl, err := LoadTables([]byte("frameworks: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.AppRoot.BodyShare != 0.8 {
		t.Fatalf("body share default: got %v", tbl.AppRoot.BodyShare)
	}
	if tbl.Escalation.ShortBody.MaxLen != 500 {
		t.Fatalf("short body default: got %d", tbl.Escalation.ShortBody.MaxLen)
	}
}

func wantSignals(t *testing.T, got []string, want ...string) {
	t.Helper()
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
			}
		}
		if !found {
			t.Fatalf("signal %q missing from %v", w, got)
		}
	}
}
