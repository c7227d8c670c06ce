package cips

import "testing"

func TestCipLog_AppendEnforcesLength(t *testing.T) {
	log := NewCipLog()
	if err := log.Append("a@b.com", ""); err == nil {
		t.Error("empty text should be rejected")
	}

	oversized := make([]byte, MaxCipLen+1)
	for i := range oversized {
		oversized[i] = 'x'
	}
	if err := log.Append("a@b.com", string(oversized)); err == nil {
		t.Error("oversized text should be rejected")
	}
}

func TestCipLog_HashtagExtraction(t *testing.T) {
	log := NewCipLog()
	if err := log.Append("bob@x.com", "hello #world"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Append("bob@x.com", "bare # tag and #42 and ##double"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	counts := log.HashtagsSince(0)
	want := map[string]int{"world": 1, "42": 1, "double": 1}
	got := make(map[string]int)
	for _, c := range counts {
		got[c.Tag] = c.Count
	}
	for tag, count := range want {
		if got[tag] != count {
			t.Errorf("hashtag %q count = %d, want %d (all: %v)", tag, got[tag], count, got)
		}
	}
	if _, ok := got[""]; ok {
		t.Error("bare # should not produce an empty hashtag")
	}
}

func TestCipLog_CipsSinceOrderingAndFilter(t *testing.T) {
	log := NewCipLog()
	log.Append("bob@x.com", "hello #world")
	log.Append("carol@x.com", "hi")
	log.Append("dave@x.com", "excluded")

	following := map[string]struct{}{"bob@x.com": {}, "carol@x.com": {}}
	cips := log.CipsSince(0, following)

	if len(cips) != 2 {
		t.Fatalf("len(cips) = %d, want 2", len(cips))
	}
	if cips[0].Author != "bob@x.com" || cips[1].Author != "carol@x.com" {
		t.Errorf("order = %s, %s; want bob then carol (oldest-first)", cips[0].Author, cips[1].Author)
	}
	for _, c := range cips {
		if c.Author == "dave@x.com" {
			t.Error("dave should be filtered out (not in following set)")
		}
	}
}

func TestCipLog_CipsSinceEmptyFilterYieldsNothing(t *testing.T) {
	log := NewCipLog()
	log.Append("bob@x.com", "hello")

	cips := log.CipsSince(0, map[string]struct{}{})
	if len(cips) != 0 {
		t.Errorf("expected no cips for empty filter, got %d", len(cips))
	}
}

func TestCipLog_SinceTimestampExcludesOlder(t *testing.T) {
	log := NewCipLog()
	log.Append("bob@x.com", "old one")

	following := map[string]struct{}{"bob@x.com": {}}
	// A future since-timestamp should exclude everything appended so far.
	cips := log.CipsSince(1<<62, following)
	if len(cips) != 0 {
		t.Errorf("expected no cips newer than a far-future timestamp, got %d", len(cips))
	}
}
