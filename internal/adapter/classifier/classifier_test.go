package classifier

import (
	"context"
	"errors"
	"testing"

	"opsqa/internal/domain"
)

type fakeLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return f.GenerateWithSystem(ctx, "", prompt)
}

func (f *fakeLLM) GenerateWithSystem(_ context.Context, _, _ string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no more responses")
}

func (f *fakeLLM) ModelName() string { return "fake" }

func TestClassifyValidJSON(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"category": "maintenance", "document_type": "manual", "equipment": ["pump-7"], "language": "en", "safety_critical": false}`,
	}}
	c := NewLLMClassifier(llm, 2)

	cls, err := c.Classify(context.Background(), "lubricate the pump bearings monthly")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if cls.Category != "maintenance" {
		t.Errorf("Category = %q, want maintenance", cls.Category)
	}
	if len(cls.Equipment) != 1 || cls.Equipment[0] != "pump-7" {
		t.Errorf("Equipment = %v, want [pump-7]", cls.Equipment)
	}
	if cls.Language != "en" {
		t.Errorf("Language = %q, want en", cls.Language)
	}
}

func TestClassifyStripsMarkdownFence(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"```json\n{\"category\": \"safety\", \"document_type\": \"sop\", \"equipment\": [], \"language\": \"pt\", \"safety_critical\": true}\n```",
	}}
	c := NewLLMClassifier(llm, 0)

	cls, err := c.Classify(context.Background(), "procedimento de bloqueio")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if cls.Category != "safety" {
		t.Errorf("Category = %q, want safety", cls.Category)
	}
	if !cls.SafetyCritical {
		t.Error("SafetyCritical = false, want true")
	}
}

func TestClassifyRetriesThenSucceeds(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"I think this is about maintenance.",
		`{"category": "operations", "document_type": "log", "equipment": [], "language": "en", "safety_critical": false}`,
	}}
	c := NewLLMClassifier(llm, 2)

	cls, err := c.Classify(context.Background(), "shift handover notes")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if cls.Category != "operations" {
		t.Errorf("Category = %q, want operations", cls.Category)
	}
	if llm.calls != 2 {
		t.Errorf("calls = %d, want 2", llm.calls)
	}
}

func TestClassifyFallsBackAfterRetryBudget(t *testing.T) {
	llm := &fakeLLM{responses: []string{"garbage", "more garbage", "still garbage"}}
	c := NewLLMClassifier(llm, 2)

	cls, err := c.Classify(context.Background(), "unreadable")
	if err == nil {
		t.Fatal("expected error after retry budget spent")
	}
	if cls.Category != domain.CategoryFallback {
		t.Errorf("Category = %q, want %q", cls.Category, domain.CategoryFallback)
	}
	if cls.Equipment == nil || len(cls.Equipment) != 0 {
		t.Errorf("Equipment = %v, want empty", cls.Equipment)
	}
	if llm.calls != 3 {
		t.Errorf("calls = %d, want 3", llm.calls)
	}
}

func TestClassifyRejectsUnknownCategory(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"category": "astrology", "document_type": "manual", "equipment": [], "language": "en", "safety_critical": false}`,
	}}
	c := NewLLMClassifier(llm, 0)

	cls, err := c.Classify(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
	if cls.Category != domain.CategoryFallback {
		t.Errorf("Category = %q, want fallback", cls.Category)
	}
}

func TestClassifyTransportErrorThenSuccess(t *testing.T) {
	llm := &fakeLLM{
		errs: []error{errors.New("connection refused")},
		responses: []string{
			"",
			`{"category": "technical", "document_type": "datasheet", "equipment": ["valve-3"], "language": "en", "safety_critical": false}`,
		},
	}
	c := NewLLMClassifier(llm, 1)

	cls, err := c.Classify(context.Background(), "valve torque spec")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if cls.Category != "technical" {
		t.Errorf("Category = %q, want technical", cls.Category)
	}
}

func TestNoopClassifier(t *testing.T) {
	cls, err := NoopClassifier{}.Classify(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if cls.Category != domain.CategoryFallback {
		t.Errorf("Category = %q, want fallback", cls.Category)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced with tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"padded", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
