package core

import "testing"

func TestResolveIncludeVersionExactMatch(t *testing.T) {
	got, err := ResolveIncludeVersion("1.2.0", []string{"1.1.0", "1.2.0", "1.2.1"})
	if err != nil {
		t.Fatalf("ResolveIncludeVersion: %v", err)
	}
	if got != "1.2.0" {
		t.Fatalf("got %q, want 1.2.0", got)
	}
}

func TestResolveIncludeVersionMajorMinorPicksHighestPatch(t *testing.T) {
	got, err := ResolveIncludeVersion("1.2", []string{"1.2.0", "1.2.5", "1.2.3", "1.3.0"})
	if err != nil {
		t.Fatalf("ResolveIncludeVersion: %v", err)
	}
	if got != "1.2.5" {
		t.Fatalf("got %q, want 1.2.5 (highest patch within 1.2.x)", got)
	}
}

func TestResolveIncludeVersionNoMatch(t *testing.T) {
	if _, err := ResolveIncludeVersion("2.0", []string{"1.2.0", "1.3.0"}); err == nil {
		t.Fatal("expected an error when no available version satisfies the constraint")
	}
}

func TestResolveIncludeVersionRejectsEmptyConstraint(t *testing.T) {
	if _, err := ResolveIncludeVersion("", []string{"1.0.0"}); err == nil {
		t.Fatal("expected an error for an empty constraint")
	}
}

func TestResolveIncludeVersionRejectsInvalidConstraint(t *testing.T) {
	if _, err := ResolveIncludeVersion("not-a-version", []string{"1.0.0"}); err == nil {
		t.Fatal("expected an error for a malformed constraint")
	}
}

func TestResolveIncludeVersionSkipsInvalidCandidates(t *testing.T) {
	got, err := ResolveIncludeVersion("1.2", []string{"garbage", "1.2.4"})
	if err != nil {
		t.Fatalf("ResolveIncludeVersion: %v", err)
	}
	if got != "1.2.4" {
		t.Fatalf("got %q, want 1.2.4", got)
	}
}
