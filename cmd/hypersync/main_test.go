package main

import (
	"testing"
)

func TestNewDependenciesWiresSessionAndConfig(t *testing.T) {
	t.Parallel()

	deps := newDependencies()
	if deps.NewSession == nil {
		t.Fatal("expected a session factory")
	}
	if deps.LoadConfig == nil {
		t.Fatal("expected a config loader")
	}
}
