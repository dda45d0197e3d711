package core

import "testing"

func TestMessage_Constructors(t *testing.T) {
	m := NewUserMessage("hello")
	if m.Role != RoleUser || m.Content != "hello" || m.ID == "" || m.Timestamp.IsZero() {
		t.Fatalf("NewUserMessage did not initialize fields correctly: %+v", m)
	}

	sys := NewSystemMessage("be brief")
	if !sys.IsSystem() {
		t.Fatalf("expected system message, got %+v", sys)
	}

	a := NewAssistantMessage("hi", MessageMetadata{Backend: "openai", Confidence: 0.9})
	if a.Metadata == nil || a.Metadata.Backend != "openai" {
		t.Fatalf("NewAssistantMessage metadata missing: %+v", a)
	}
}

func TestMessage_CloneIsolation(t *testing.T) {
	action := ActionDescriptor{Type: ActionTrade, Target: "FOO", Params: map[string]any{"quantity": 10.0}}
	orig := NewAssistantMessage("done", MessageMetadata{ActionExecuted: true, Action: &action})

	cp := orig.Clone()
	cp.Metadata.Backend = "changed"
	cp.Metadata.Action.Params["quantity"] = 1.0

	if orig.Metadata.Backend == "changed" {
		t.Error("metadata should be copied")
	}
	if q, _ := orig.Metadata.Action.Float("quantity"); q != 10 {
		t.Errorf("action params should be copied, got %v", q)
	}
}

func TestCloneMessages_NilYieldsEmpty(t *testing.T) {
	out := CloneMessages(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("tool").Valid() {
		t.Error("tool role is not part of the conversation model")
	}
}

func TestActionDescriptor_Accessors(t *testing.T) {
	a := ActionDescriptor{Params: map[string]any{"quantity": 3, "side": "buy", "ratio": float32(0.5)}}
	if q, ok := a.Float("quantity"); !ok || q != 3 {
		t.Errorf("int param should convert, got %v %v", q, ok)
	}
	if r, ok := a.Float("ratio"); !ok || r != 0.5 {
		t.Errorf("float32 param should convert, got %v %v", r, ok)
	}
	if _, ok := a.Float("missing"); ok {
		t.Error("missing param should report false")
	}
	if a.String("side") != "buy" {
		t.Errorf("unexpected side %q", a.String("side"))
	}
}
