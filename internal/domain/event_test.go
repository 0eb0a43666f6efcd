package domain

import "testing"

func TestEventIsActivity(t *testing.T) {
	tests := []struct {
		eventType string
		want      bool
	}{
		{EventToolCall, true},
		{EventToolResult, true},
		{EventHTTPRequest, true},
		{EventWebhookReceived, true},
		{"tool.search", true},
		{"tool.", true},
		{EventWorkflowStart, false},
		{EventWorkflowComplete, false},
		{"toolcall", false},
		{"", false},
	}

	for _, tt := range tests {
		ev := &Event{EventType: tt.eventType}
		if got := ev.IsActivity(); got != tt.want {
			t.Errorf("IsActivity(%q) = %v, want %v", tt.eventType, got, tt.want)
		}
	}
}

func TestEventIsTerminal(t *testing.T) {
	tests := []struct {
		eventType string
		want      bool
	}{
		{EventWorkflowComplete, true},
		{EventWorkflowError, true},
		{EventWorkflowStart, false},
		{EventToolCall, false},
	}

	for _, tt := range tests {
		ev := &Event{EventType: tt.eventType}
		if got := ev.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%q) = %v, want %v", tt.eventType, got, tt.want)
		}
	}
}

func TestFieldsString(t *testing.T) {
	f := Fields{"message": "boom", "empty": "", "num": 7.0}

	if v, ok := f.String("message"); !ok || v != "boom" {
		t.Errorf("String(message) = %q, %v", v, ok)
	}
	if _, ok := f.String("empty"); ok {
		t.Error("String(empty) should report absent for empty string")
	}
	if _, ok := f.String("num"); ok {
		t.Error("String(num) should report absent for non-string value")
	}
	if _, ok := f.String("missing"); ok {
		t.Error("String(missing) should report absent")
	}

	var nilFields Fields
	if _, ok := nilFields.String("any"); ok {
		t.Error("nil Fields should report absent")
	}
}

func TestFieldsBool(t *testing.T) {
	f := Fields{
		"t":        true,
		"f":        false,
		"one":      1.0, // JSON numbers decode as float64
		"zero":     0.0,
		"yes":      "true",
		"strfalse": "false",
	}

	if !f.Bool("t") || f.Bool("f") {
		t.Error("Bool should follow boolean values")
	}
	if !f.Bool("one") || f.Bool("zero") {
		t.Error("Bool should treat non-zero numbers as truthy")
	}
	if !f.Bool("yes") || f.Bool("strfalse") {
		t.Error("Bool should treat non-empty, non-false strings as truthy")
	}
	if f.Bool("missing") {
		t.Error("Bool(missing) should be false")
	}
}

func TestFieldsClone(t *testing.T) {
	orig := Fields{"a": 1}
	cp := orig.Clone()
	cp["b"] = 2

	if orig.Has("b") {
		t.Error("mutating clone should not touch original")
	}

	var nilFields Fields
	cp = nilFields.Clone()
	cp["a"] = 1 // must be writable even when source was nil
}
