package main

import (
	"testing"
)

func TestResolveGenesisPathPrecedence(t *testing.T) {
	t.Setenv("HASHMELODY_GENESIS", "/env/genesis.yaml")
	if got := resolveGenesisPath(" /flag/genesis.yaml ", "/cfg/genesis.yaml"); got != "/flag/genesis.yaml" {
		t.Fatalf("flag should win, got %q", got)
	}
	if got := resolveGenesisPath("", "/cfg/genesis.yaml"); got != "/env/genesis.yaml" {
		t.Fatalf("env should win over config, got %q", got)
	}
	t.Setenv("HASHMELODY_GENESIS", "")
	if got := resolveGenesisPath("", "/cfg/genesis.yaml"); got != "/cfg/genesis.yaml" {
		t.Fatalf("config fallback expected, got %q", got)
	}
}
