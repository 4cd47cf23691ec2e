package sync

import "testing"

func TestNormalizeToLF(t *testing.T) {
	if got := normalize("a\r\nb\nc", false); got != "a\nb\nc" {
		t.Fatalf("normalize to LF = %q", got)
	}
}

func TestNormalizeToCRLF(t *testing.T) {
	if got := normalize("a\nb\r\nc", true); got != "a\r\nb\r\nc" {
		t.Fatalf("normalize to CRLF = %q", got)
	}
}

func TestDocumentUpdatePushesToCRDT(t *testing.T) {
	crdt := newFakeCRDT("hello\nworld")
	doc, err := NewDocument(crdt, nil)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if err := doc.Update([]Change{{Start: 5, End: 5, Text: "X"}}, true); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if doc.Text() != "helloX\nworld" {
		t.Fatalf("text = %q", doc.Text())
	}
	got, _ := crdt.String()
	if got != "helloX\nworld" {
		t.Fatalf("crdt text = %q", got)
	}
}

func TestDocumentUpdateLineEndingOutbound(t *testing.T) {
	crdt := newFakeCRDT("a\nb")
	doc, err := NewDocument(crdt, nil)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	// Editor change inserting a CRLF must reach the CRDT as a bare LF.
	if err := doc.Update([]Change{{Start: 1, End: 1, Text: "\r\n"}}, true); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := crdt.String()
	if got != "a\n\nb" {
		t.Fatalf("crdt text = %q, want %q", got, "a\n\nb")
	}
}

func TestDocumentUpdateOverlapRejected(t *testing.T) {
	crdt := newFakeCRDT("abcdef")
	doc, _ := NewDocument(crdt, nil)
	err := doc.Update([]Change{
		{Start: 0, End: 3, Text: "X"},
		{Start: 2, End: 4, Text: "Y"},
	}, true)
	if err != ErrOverlappingEdit {
		t.Fatalf("err = %v, want ErrOverlappingEdit", err)
	}
}

func TestDocumentTranslateDeltaPreservesLineEnding(t *testing.T) {
	crdt := newFakeCRDT("a\nb")
	doc, err := NewDocument(crdt, nil)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	doc.text = "a\r\nb"
	doc.lineIndex.Invalidate()
	doc.hasCR = true

	changes := doc.TranslateDelta([]DeltaOp{
		{Kind: DeltaRetain, N: 2},
		{Kind: DeltaInsert, Text: "X"},
	})
	if len(changes) != 1 {
		t.Fatalf("changes = %+v", changes)
	}
	if changes[0].Start != 3 || changes[0].End != 3 {
		t.Fatalf("change offset = %+v, want Start=End=3", changes[0])
	}
	if changes[0].Text != "X" {
		t.Fatalf("change text = %q", changes[0].Text)
	}
}

func TestDocumentCloseDisposes(t *testing.T) {
	crdt := newFakeCRDT("abc")
	doc, _ := NewDocument(crdt, nil)
	if err := doc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := doc.Update(nil, false); err != ErrObserverDisposed {
		t.Fatalf("err = %v, want ErrObserverDisposed", err)
	}
}
