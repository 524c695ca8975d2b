package models

import (
	"fmt"
	"time"
)

// TestClassNatural marks a test with no embedded payload question.
const TestClassNatural = "natural"

// TestSpec is one logical unit of work: a (model, provider, prompt
// construction, repetition) tuple to be dispatched and recorded.
// Specs are constructed before dispatch and never mutated.
type TestSpec struct {
	Model    string `json:"model" yaml:"model"`
	Provider string `json:"provider" yaml:"provider"`
	Class    string `json:"class" yaml:"class"`
	Payload  string `json:"payload,omitempty" yaml:"payload,omitempty"`
	Index    int    `json:"index" yaml:"index"`
}

// Natural reports whether the spec carries no payload question.
func (s TestSpec) Natural() bool {
	return s.Class == TestClassNatural || s.Class == ""
}

// DisplayModel returns the model name used in persisted records. Payload
// tests get a class-suffixed name so the same model under different payloads
// is tracked as a distinct series.
func (s TestSpec) DisplayModel() string {
	if s.Natural() {
		return s.Model
	}
	return fmt.Sprintf("%s-%s", s.Model, s.Class)
}

// RawResponse is the ephemeral result of dispatching one TestSpec.
type RawResponse struct {
	Spec        TestSpec      `json:"spec"`
	Text        string        `json:"text,omitempty"`
	ActualModel string        `json:"actual_model,omitempty"`
	Err         string        `json:"error,omitempty"`
	Attempts    int           `json:"attempts"`
	Cached      bool          `json:"cached"`
	Elapsed     time.Duration `json:"elapsed"`
}

// OK reports whether the dispatch produced a response.
func (r RawResponse) OK() bool {
	return r.Err == ""
}

// ResultRecord is one row of the result ledger.
type ResultRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	RunID          string    `json:"run_id"`
	Model          string    `json:"model"`
	Provider       string    `json:"provider"`
	TestClass      string    `json:"test_class"`
	RequestIndex   int       `json:"request_index"`
	InputText      string    `json:"input_text"`
	Payload        string    `json:"additional_payload"`
	Response       string    `json:"response"`
	Similarity     float64   `json:"similarity"`
	ResponseLength int       `json:"response_length"`
	IsReasoning    bool      `json:"is_reasoning"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
}

// Record statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
