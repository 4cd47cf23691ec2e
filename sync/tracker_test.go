package sync

import "testing"

func TestApplyTextChangesEmpty(t *testing.T) {
	got, err := ApplyTextChanges("hello", nil)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyTextChangesOverlap(t *testing.T) {
	_, err := ApplyTextChanges("abcdef", []Change{
		{Start: 0, End: 3, Text: "X"},
		{Start: 2, End: 4, Text: "Y"},
	})
	if err != ErrOverlappingEdit {
		t.Fatalf("err = %v, want ErrOverlappingEdit", err)
	}
}

func TestTrackerEchoSuppression(t *testing.T) {
	tr := NewTracker()
	cs := ChangeSet{Before: "hello\nworld", After: "helloX\nworld"}
	tr.pending = append(tr.pending, cs)

	echo := []Change{{Start: 5, End: 5, Text: "X"}}
	if tr.ShouldApply(echo) {
		t.Fatalf("ShouldApply(echo) = true, want false")
	}

	genuine := []Change{{Start: 0, End: 0, Text: "Y"}}
	if !tr.ShouldApply(genuine) {
		t.Fatalf("ShouldApply(genuine) = false, want true")
	}
}

func TestTrackerApplyChangesRemovesOnFailure(t *testing.T) {
	tr := NewTracker()
	cs := ChangeSet{Before: "a", After: "b"}
	err := tr.ApplyChanges(cs, func() error { return ErrEditorRejectedEdit })
	if err != ErrEditorRejectedEdit {
		t.Fatalf("err = %v", err)
	}
	if len(tr.Pending()) != 0 {
		t.Fatalf("pending = %+v, want empty", tr.Pending())
	}
}
