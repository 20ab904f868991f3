package bus

import (
	"testing"
	"time"
)

func TestDedupeCache_IsDuplicate(t *testing.T) {
	d := NewDedupeCache(time.Minute, 10)

	if d.IsDuplicate("msg1") {
		t.Error("first sighting should not be a duplicate")
	}
	if !d.IsDuplicate("msg1") {
		t.Error("second sighting within ttl should be a duplicate")
	}
	if d.IsDuplicate("msg2") {
		t.Error("different key should not be a duplicate")
	}
}

func TestDedupeCache_TTLExpiry(t *testing.T) {
	d := NewDedupeCache(10*time.Millisecond, 10)

	d.IsDuplicate("msg1")
	time.Sleep(20 * time.Millisecond)

	if d.IsDuplicate("msg1") {
		t.Error("entry should have expired after ttl")
	}
}

func TestDedupeCache_EvictsOldestAtCapacity(t *testing.T) {
	d := NewDedupeCache(time.Minute, 2)

	d.IsDuplicate("a")
	time.Sleep(time.Millisecond)
	d.IsDuplicate("b")
	time.Sleep(time.Millisecond)
	d.IsDuplicate("c") // should evict "a"

	if len(d.seen) > 2 {
		t.Errorf("cache should not exceed max entries, got %d", len(d.seen))
	}
	if d.IsDuplicate("a") {
		t.Error("'a' should have been evicted and treated as new")
	}
}
