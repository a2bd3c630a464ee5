package resolver

import "testing"

func TestTable(t *testing.T) {
	t.Parallel()

	table := NewTable()
	if got := table.Resolve("urn:doc:1"); got != "urn:doc:1" {
		t.Fatalf("expected unknown URIs to resolve to themselves, got %q", got)
	}

	table.Add("urn:doc:1", "/t/1")
	table.Add("urn:doc:2", "/t/2")
	table.Add(" ", "/ignored")
	if got := table.Resolve(" urn:doc:1 "); got != "/t/1" {
		t.Fatalf("expected mapped URI, got %q", got)
	}

	table.Update("urn:doc:1", "/t/10")
	if got := table.Resolve("urn:doc:1"); got != "/t/10" {
		t.Fatalf("expected updated mapping, got %q", got)
	}

	table.Remove("/t/2")
	if got := table.Resolve("urn:doc:2"); got != "urn:doc:2" {
		t.Fatalf("expected mapping to removed resource to be dropped, got %q", got)
	}
	if table.Len() != 1 {
		t.Fatalf("expected one mapping, got %v", table.Mappings())
	}
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	Identity.Add("a", "b")
	if got := Identity.Resolve("a"); got != "a" {
		t.Fatalf("expected identity resolution, got %q", got)
	}
}
