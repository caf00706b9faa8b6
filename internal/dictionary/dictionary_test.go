package dictionary

import "testing"

func TestExpandPartialMatchBasic(t *testing.T) {
	s := New()
	if err := s.Set([]Entry{{ID: "1", Trigger: "brb", Expansion: "be right back"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got := s.Expand("ok brb see you")
	want := "ok be right back see you"
	if got.Text != want {
		t.Fatalf("Expand() = %q, want %q", got.Text, want)
	}
	if got.ShouldPressEnter {
		t.Fatal("ShouldPressEnter should be false without auto_enter")
	}
}

func TestExpandWordBoundary(t *testing.T) {
	s := New()
	_ = s.Set([]Entry{{ID: "1", Trigger: "brb", Expansion: "be right back"}})
	got := s.Expand("the library is closed")
	if got.Text != "the library is closed" {
		t.Fatalf("Expand() should not match inside another word, got %q", got.Text)
	}
}

func TestExpandCaseInsensitive(t *testing.T) {
	s := New()
	_ = s.Set([]Entry{{ID: "1", Trigger: "brb", Expansion: "be right back"}})
	got := s.Expand("BRB everyone")
	if got.Text != "be right back everyone" {
		t.Fatalf("Expand() = %q", got.Text)
	}
}

func TestExpandSuffix(t *testing.T) {
	s := New()
	_ = s.Set([]Entry{{ID: "1", Trigger: "comma", Expansion: ",", Suffix: " ", HasSuffix: true}})
	got := s.Expand("wait comma actually no")
	if got.Text != "wait ,  actually no" {
		t.Fatalf("Expand() = %q", got.Text)
	}
}

func TestExpandDisableSuffixStripsTrailingPunctuation(t *testing.T) {
	s := New()
	_ = s.Set([]Entry{{
		ID: "1", Trigger: "smiley", Expansion: ":)",
		Suffix: "!", HasSuffix: true, DisableSuffix: true,
	}})
	got := s.Expand("great smiley!!")
	if got.Text != "great :)" {
		t.Fatalf("Expand() = %q, want %q", got.Text, "great :)")
	}
}

func TestExpandAutoEnterFlags(t *testing.T) {
	s := New()
	_ = s.Set([]Entry{{ID: "1", Trigger: "send it", Expansion: "send it", AutoEnter: true}})
	got := s.Expand("send it")
	if !got.ShouldPressEnter {
		t.Fatal("expected ShouldPressEnter true")
	}
}

func TestExpandCompleteMatchOnlyShortCircuits(t *testing.T) {
	s := New()
	_ = s.Set([]Entry{{ID: "1", Trigger: "done", Expansion: "task complete", CompleteMatchOnly: true}})

	got := s.Expand("  Done  ")
	if got.Text != "task complete" {
		t.Fatalf("Expand() = %q, want exact replacement", got.Text)
	}

	// Complete-match-only entries must NOT fire when embedded in longer text.
	got2 := s.Expand("done for today")
	if got2.Text != "done for today" {
		t.Fatalf("complete_match_only leaked into partial text: %q", got2.Text)
	}
}

func TestSetRejectsDuplicateTriggers(t *testing.T) {
	s := New()
	err := s.Set([]Entry{
		{ID: "1", Trigger: "brb", Expansion: "a"},
		{ID: "2", Trigger: "BRB", Expansion: "b"},
	})
	if err != ErrDuplicateTrigger {
		t.Fatalf("Set() error = %v, want ErrDuplicateTrigger", err)
	}
}

func TestMultipleEntriesAllApplied(t *testing.T) {
	s := New()
	_ = s.Set([]Entry{
		{ID: "1", Trigger: "brb", Expansion: "be right back"},
		{ID: "2", Trigger: "omw", Expansion: "on my way"},
	})
	got := s.Expand("brb then omw")
	if got.Text != "be right back then on my way" {
		t.Fatalf("Expand() = %q", got.Text)
	}
}
