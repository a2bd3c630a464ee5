package synccmd

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/orchestrator"
)

func TestDecodePlanBuildsRequestTree(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"target: /tenants/",
		"kind: collection",
		"document:",
		"  items:",
		"    - name: acme",
		"steps:",
		"  - kind: singleton",
		"    name: settings",
		"    steps:",
		"      - kind: uri-list",
		"        name: members",
		"        rel: member-list",
		"        document-name: memberUris",
		"  - kind: collection",
		"    name: accountGroups",
		"",
	}, "\n")

	plan, err := DecodePlan([]byte(data))
	if err != nil {
		t.Fatalf("DecodePlan returned error: %v", err)
	}
	request, err := plan.Request()
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}

	want := orchestrator.Request{
		Kind: orchestrator.KindCollection,
		Children: []orchestrator.Request{
			{
				Kind:  orchestrator.KindSingleton,
				Named: orchestrator.Named{Name: "settings"},
				Children: []orchestrator.Request{
					{
						Kind:  orchestrator.KindURIList,
						Named: orchestrator.Named{Name: "members", Rel: "member-list", DocumentName: "memberUris"},
					},
				},
			},
			{Kind: orchestrator.KindNamedCollection, Named: orchestrator.Named{Name: "accountGroups"}},
		},
	}
	if !reflect.DeepEqual(request, want) {
		t.Fatalf("unexpected request tree:\n got %#v\nwant %#v", request, want)
	}
	if plan.Target != "/tenants/" {
		t.Fatalf("unexpected target %q", plan.Target)
	}
	if items := plan.Representation().Items; len(items) != 1 {
		t.Fatalf("expected one document item, got %d", len(items))
	}
}

func TestDecodePlanDefaultsToResource(t *testing.T) {
	t.Parallel()

	plan, err := DecodePlan([]byte("document:\n  name: acme\n"))
	if err != nil {
		t.Fatalf("DecodePlan returned error: %v", err)
	}
	request, err := plan.Request()
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	if request.Kind != orchestrator.KindResource || len(request.Children) != 0 {
		t.Fatalf("unexpected request %#v", request)
	}
}

func TestDecodePlanErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		data string
		want string
	}{
		{name: "empty", data: "", want: "plan is empty"},
		{name: "unknown_field", data: "document: {}\nretries: 3\n", want: "failed to decode plan"},
		{name: "no_document", data: "kind: resource\n", want: "requires a document"},
		{name: "document_and_file", data: "document: {}\ndocument-file: x.yaml\n", want: "mutually exclusive"},
		{name: "top_level_singleton", data: "kind: singleton\ndocument: {}\n", want: "plan kind must be resource or collection"},
		{name: "unknown_kind", data: "document: {}\nsteps:\n  - kind: list\n    name: x\n", want: "steps[0].kind"},
		{name: "step_without_name", data: "document: {}\nsteps:\n  - kind: singleton\n", want: "steps[0].name is required"},
		{name: "resource_step", data: "document: {}\nsteps:\n  - kind: resource\n    name: x\n", want: "steps[0].kind must be"},
		{
			name: "uri_list_with_steps",
			data: "document: {}\nsteps:\n  - kind: uri-list\n    name: x\n    steps:\n      - kind: singleton\n        name: y\n",
			want: "uri-list steps cannot have steps",
		},
		{
			name: "nested_path",
			data: "document: {}\nsteps:\n  - kind: singleton\n    name: x\n    steps:\n      - kind: singleton\n",
			want: "steps[0].steps[0].name is required",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodePlan([]byte(testCase.data))
			if !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), testCase.want) {
				t.Fatalf("expected error containing %q, got %v", testCase.want, err)
			}
		})
	}
}

func TestLoadPlanReadsDocumentFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "tenant.json"), []byte(`{"name": "acme", "limits": {"users": 10}}`), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	planPath := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(planPath, []byte("document-file: docs/tenant.json\n"), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	plan, err := LoadPlan(planPath)
	if err != nil {
		t.Fatalf("LoadPlan returned error: %v", err)
	}
	representation := plan.Representation()
	if name, _ := representation.StringAttribute("name"); name != "acme" {
		t.Fatalf("expected name from document file, got %q", name)
	}
	limits, ok := representation.Child("limits")
	if !ok {
		t.Fatal("expected nested limits document")
	}
	if users, _ := limits.Attribute("users"); users != 10 {
		t.Fatalf("expected users limit 10, got %#v", users)
	}
}

func TestLoadPlanErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadPlan(" "); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error for empty path, got %v", err)
	}
	if _, err := LoadPlan(filepath.Join(t.TempDir(), "missing.yaml")); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error for missing plan, got %v", err)
	}

	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(planPath, []byte("document-file: missing.json\n"), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	if _, err := LoadPlan(planPath); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error for missing document, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(t.TempDir(), "outside.json"), []byte(`{}`), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	if err := os.WriteFile(planPath, []byte("document-file: ../outside.json\n"), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	_, err := LoadPlan(planPath)
	if !faults.IsCategory(err, faults.ValidationError) || !strings.Contains(err.Error(), "outside the plan directory") {
		t.Fatalf("expected escape to be rejected, got %v", err)
	}
}
