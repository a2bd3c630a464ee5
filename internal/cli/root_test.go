package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/core"
	"github.com/crmarques/hypersync/faults"
	clitestkit "github.com/crmarques/hypersync/internal/cli/testkit"
	"github.com/crmarques/hypersync/transport"
	"github.com/crmarques/hypersync/transport/transporttest"
)

const testRoot = "https://api.example.com/"

func links(pairs ...string) []map[string]any {
	out := make([]map[string]any, 0, len(pairs)/2)
	for idx := 0; idx+1 < len(pairs); idx += 2 {
		out = append(out, map[string]any{"rel": pairs[idx], "href": pairs[idx+1]})
	}
	return out
}

func testDeps(fake *transporttest.Fake) Dependencies {
	return Dependencies{
		NewSession: func(ctx context.Context, cfg config.Session, opts ...core.SessionOption) (*core.Session, error) {
			return core.NewSession(ctx, cfg, append(opts, core.WithTransport(fake))...)
		},
		LoadConfig: func(string) (config.Session, error) {
			cfg := config.Default()
			cfg.API.Root = testRoot
			return cfg, nil
		},
	}
}

// serveAPI registers a root linking to a tenants collection with a create
// form, and a profile singleton with an edit form.
func serveAPI(fake *transporttest.Fake) {
	fake.JSON(http.MethodGet, testRoot, http.StatusOK, map[string]any{
		"links": links(
			"self", testRoot,
			"tenants", testRoot+"tenants/",
			"profile", testRoot+"profile",
		),
		"version": "1.4.0",
	})
	fake.JSON(http.MethodGet, testRoot+"tenants/", http.StatusOK, map[string]any{
		"links": links("self", testRoot+"tenants/", "create-form", testRoot+"tenants/create-form"),
		"items": []any{
			map[string]any{"links": links("self", testRoot+"tenants/1"), "name": "acme"},
		},
	})
	fake.JSON(http.MethodGet, testRoot+"tenants/create-form", http.StatusOK, map[string]any{
		"links": links("self", testRoot+"tenants/create-form", "submit", testRoot+"tenants/"),
		"items": []map[string]any{
			{"type": "text", "name": "name", "required": true},
			{"type": "text/email", "name": "contact"},
		},
	})
	fake.JSON(http.MethodGet, testRoot+"profile", http.StatusOK, map[string]any{
		"links": links("self", testRoot+"profile", "edit-form", testRoot+"profile/edit-form"),
		"name":  "old",
	})
	fake.JSON(http.MethodGet, testRoot+"profile/edit-form", http.StatusOK, map[string]any{
		"links": links("self", testRoot+"profile/edit-form", "submit", testRoot+"profile"),
		"items": []map[string]any{{"type": "text", "name": "name"}},
	})
	fake.Status(http.MethodPut, testRoot+"profile", http.StatusNoContent)
}

func executeForTest(deps Dependencies, stdin string, args ...string) (string, error) {
	return clitestkit.ExecuteCommandForTest(NewRootCommand(deps), stdin, args...)
}

func executeForTestWithStreams(deps Dependencies, stdin string, args ...string) (string, string, error) {
	return clitestkit.ExecuteCommandForTestWithStreams(NewRootCommand(deps), stdin, args...)
}

func assertTypedCategory(t *testing.T, err error, category faults.ErrorCategory) {
	t.Helper()
	if !faults.IsCategory(err, category) {
		t.Fatalf("expected %s, got %v", category, err)
	}
}

func TestRequiredCommandPathsRegistered(t *testing.T) {
	t.Parallel()

	requiredPaths := []string{
		"resource",
		"resource get",
		"resource forms",
		"sync",
		"version",
	}

	pathSet := make(map[string]struct{})
	for _, path := range clitestkit.CommandPaths(NewRootCommand(Dependencies{})) {
		pathSet[path] = struct{}{}
	}

	for _, required := range requiredPaths {
		if _, ok := pathSet[required]; !ok {
			t.Fatalf("expected command path %q to be registered", required)
		}
	}
}

func TestRootWithoutArgsShowsHelp(t *testing.T) {
	t.Parallel()

	output, err := executeForTest(Dependencies{}, "")
	if err != nil {
		t.Fatalf("root command returned error: %v", err)
	}
	if !strings.Contains(output, "Basic Commands:") {
		t.Fatalf("expected grouped help output, got %q", output)
	}
	if !strings.Contains(output, "\n  sync ") {
		t.Fatalf("expected sync command to be present in root help, got %q", output)
	}
}

func TestGlobalFlagsParse(t *testing.T) {
	t.Parallel()

	output, err := executeForTest(Dependencies{}, "", "--config", "x.yaml", "-d", "-n", "-o", "json", "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "\"version\"") {
		t.Fatalf("expected json version output, got %q", output)
	}
}

func TestGlobalFlagValidation(t *testing.T) {
	t.Parallel()

	t.Run("invalid_output", func(t *testing.T) {
		t.Parallel()

		_, err := executeForTest(Dependencies{}, "", "-o", "xml", "version")
		assertTypedCategory(t, err, faults.ValidationError)
	})

	t.Run("unknown_flag_prints_usage", func(t *testing.T) {
		t.Parallel()

		_, stderr, err := executeForTestWithStreams(Dependencies{}, "", "version", "--bogus")
		assertTypedCategory(t, err, faults.ValidationError)
		if !strings.Contains(stderr, "Usage:") {
			t.Fatalf("expected usage on stderr, got %q", stderr)
		}
	})

	t.Run("session_commands_need_factory", func(t *testing.T) {
		t.Parallel()

		_, err := executeForTest(Dependencies{}, "", "resource", "get")
		assertTypedCategory(t, err, faults.ValidationError)
	})
}

func TestDebugFlagPrintsTraceOutput(t *testing.T) {
	t.Parallel()

	fake := transporttest.New()
	serveAPI(fake)

	_, debugOutput, err := executeForTestWithStreams(testDeps(fake), "", "--debug", "resource", "get", "--rel", "tenants")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(debugOutput, "debug: root flags") {
		t.Fatalf("expected root debug trace, got %q", debugOutput)
	}
	if !strings.Contains(debugOutput, "resource get following rel") {
		t.Fatalf("expected rel traversal trace, got %q", debugOutput)
	}

	_, quietOutput, err := executeForTestWithStreams(testDeps(fake), "", "resource", "get")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(quietOutput, "debug:") {
		t.Fatalf("expected no debug output without --debug, got %q", quietOutput)
	}
}

func TestResourceGet(t *testing.T) {
	t.Parallel()

	t.Run("follows_rels", func(t *testing.T) {
		t.Parallel()

		fake := transporttest.New()
		serveAPI(fake)

		output, err := executeForTest(testDeps(fake), "", "-o", "json", "resource", "get", "--rel", "tenants")
		if err != nil {
			t.Fatalf("resource get returned error: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(output), &decoded); err != nil {
			t.Fatalf("expected json output, got %q: %v", output, err)
		}
		items, ok := decoded["items"].([]any)
		if !ok || len(items) != 1 {
			t.Fatalf("expected one tenant item, got %#v", decoded["items"])
		}
	})

	t.Run("explicit_uri_with_jq", func(t *testing.T) {
		t.Parallel()

		fake := transporttest.New()
		serveAPI(fake)

		output, err := executeForTest(testDeps(fake), "", "resource", "get", "/tenants/", "--jq", ".items[0].name")
		if err != nil {
			t.Fatalf("resource get returned error: %v", err)
		}
		if strings.TrimSpace(output) != `"acme"` {
			t.Fatalf("unexpected jq output %q", output)
		}
	})

	t.Run("yaml_output", func(t *testing.T) {
		t.Parallel()

		fake := transporttest.New()
		serveAPI(fake)

		output, err := executeForTest(testDeps(fake), "", "-o", "yaml", "resource", "get", "profile")
		if err != nil {
			t.Fatalf("resource get returned error: %v", err)
		}
		if !strings.Contains(output, "name: old\n") {
			t.Fatalf("expected yaml attribute, got %q", output)
		}
	})

	t.Run("missing_rel", func(t *testing.T) {
		t.Parallel()

		fake := transporttest.New()
		serveAPI(fake)

		_, err := executeForTest(testDeps(fake), "", "resource", "get", "--rel", "invoices")
		assertTypedCategory(t, err, faults.ContractError)
		if got := ExitCodeForError(err); got != 7 {
			t.Fatalf("expected exit code 7, got %d", got)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		t.Parallel()

		fake := transporttest.New()
		serveAPI(fake)
		fake.Status(http.MethodGet, testRoot+"secret", http.StatusForbidden)

		_, err := executeForTest(testDeps(fake), "", "resource", "get", "/secret")
		assertTypedCategory(t, err, faults.AuthError)
	})
}

func TestResourceForms(t *testing.T) {
	t.Parallel()

	fake := transporttest.New()
	serveAPI(fake)

	output, err := executeForTest(testDeps(fake), "", "resource", "forms", "/tenants/")
	if err != nil {
		t.Fatalf("resource forms returned error: %v", err)
	}
	want := strings.Join([]string{
		"create-form -> " + testRoot + "tenants/",
		"  name (text) *",
		"  contact (text/email)",
		"",
	}, "\n")
	if output != want {
		t.Fatalf("unexpected forms output:\n got %q\nwant %q", output, want)
	}
}

func TestSyncAppliesPlan(t *testing.T) {
	t.Parallel()

	fake := transporttest.New()
	serveAPI(fake)
	var putBody string
	fake.Handle(http.MethodPut, testRoot+"profile", func(_ context.Context, request transport.Request) (*transport.Response, error) {
		putBody = string(request.Body)
		return transporttest.JSONResponse(http.StatusNoContent, nil), nil
	})

	planPath := clitestkit.WritePlan(t, strings.Join([]string{
		"document:",
		"  profile:",
		"    name: new",
		"steps:",
		"  - kind: singleton",
		"    name: profile",
		"",
	}, "\n"))

	output, err := executeForTest(testDeps(fake), "", "-o", "json", "sync", "--plan", planPath)
	if err != nil {
		t.Fatalf("sync returned error: %v", err)
	}
	if got := fake.Count(http.MethodPut, testRoot+"profile"); got != 1 {
		t.Fatalf("expected one PUT of the profile, got %d (trace %v)", got, fake.Trace())
	}
	if !strings.Contains(putBody, `"name":"new"`) {
		t.Fatalf("expected the new name in the PUT body, got %s", putBody)
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("expected json output, got %q: %v", output, err)
	}
	if decoded["uri"] != testRoot || decoded["kind"] != "resource" {
		t.Fatalf("unexpected sync result %v", decoded)
	}
}

func TestSyncPlanErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing_flag", func(t *testing.T) {
		t.Parallel()

		fake := transporttest.New()
		if _, err := executeForTest(testDeps(fake), "", "sync"); err == nil {
			t.Fatal("expected an error without --plan")
		}
		if len(fake.Calls()) != 0 {
			t.Fatalf("expected no API calls, got %v", fake.Trace())
		}
	})

	t.Run("invalid_plan", func(t *testing.T) {
		t.Parallel()

		planPath := clitestkit.WritePlan(t, "document: {}\nsteps:\n  - kind: resource\n    name: x\n")
		fake := transporttest.New()
		_, err := executeForTest(testDeps(fake), "", "sync", "--plan", planPath)
		assertTypedCategory(t, err, faults.ValidationError)
		if len(fake.Calls()) != 0 {
			t.Fatalf("expected no API calls for an invalid plan, got %v", fake.Trace())
		}
	})

	t.Run("confirm_deletes_requires_terminal", func(t *testing.T) {
		t.Parallel()

		planPath := clitestkit.WritePlan(t, "document: {}\n")
		_, err := executeForTest(testDeps(transporttest.New()), "", "sync", "--plan", planPath, "--confirm-deletes")
		assertTypedCategory(t, err, faults.ValidationError)
	})
}
