package yamlutil

import (
	"errors"
	"io"
	"testing"
)

func TestMarshalWithIndent(t *testing.T) {
	t.Parallel()

	data, err := MarshalWithIndent(map[string]any{"sync": map[string]any{"batch-size": 2}}, 2)
	if err != nil {
		t.Fatalf("MarshalWithIndent returned error: %v", err)
	}
	if got, want := string(data), "sync:\n  batch-size: 2\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	type target struct {
		Name string `yaml:"name"`
	}

	var decoded target
	if err := DecodeStrict([]byte("name: acme\n"), &decoded); err != nil || decoded.Name != "acme" {
		t.Fatalf("expected name acme, got %+v err=%v", decoded, err)
	}
	if err := DecodeStrict([]byte("name: acme\nextra: true\n"), &target{}); err == nil {
		t.Fatal("expected unknown key to fail")
	}
	if err := DecodeStrict(nil, &target{}); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF for empty input, got %v", err)
	}
}
