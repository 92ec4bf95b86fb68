package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestNewSessionID tests the short session id shape
func TestNewSessionID(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if len(id) != SessionIDLength {
			t.Fatalf("Expected %d characters, got %q", SessionIDLength, id)
		}
		if seen[id] {
			t.Errorf("Generated duplicate session ID: %s", id)
		}
		seen[id] = true
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() || !ID("  ").IsEmpty() {
		t.Error("Expected blank IDs to be empty")
	}
	if ID("abc").IsEmpty() {
		t.Error("Expected non-blank ID to not be empty")
	}
	if ID("test-123").String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123'")
	}
}
