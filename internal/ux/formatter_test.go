package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/felixgeelhaar/backlog/internal/plan"
)

type testData struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

type stringer struct{}

func (stringer) String() string { return "from stringer" }

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"json format", "json", false},
		{"yaml format", "yaml", false},
		{"text format", "text", false},
		{"empty format defaults to text", "", false},
		{"unknown format", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormatter(tt.format, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	if err := formatter.Format(testData{Name: "test", Value: 42}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"name": "test"`) || !strings.Contains(output, `"value": 42`) {
		t.Errorf("JSON output missing expected fields: %s", output)
	}
}

func TestJSONFormatterCompact(t *testing.T) {
	var buf bytes.Buffer
	formatter, _ := NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})

	if err := formatter.Format(testData{Name: "test", Value: 42}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Count(buf.String(), "\n") > 1 {
		t.Errorf("Compact JSON should be single line, got: %s", buf.String())
	}
}

func TestStructuredFormatsEncodeTheModel(t *testing.T) {
	p := plan.New("demo", plan.Initiative{Base: plan.Base{LocalID: "I1", Summary: "Checkout"}})

	tests := []struct {
		format string
		want   string
	}{
		{"json", `"project_key": "DEMO"`},
		{"yaml", "project_key: DEMO"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			formatter, _ := NewFormatter(tt.format, &FormatterOptions{Writer: &buf})
			if err := formatter.Format(PlanView{Plan: p}); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
			if strings.Contains(buf.String(), "Keys") {
				t.Errorf("view wrapper leaked into output:\n%s", buf.String())
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		data    any
		want    string
		wantErr bool
	}{
		{name: "string data", data: "hello world", want: "hello world"},
		{name: "stringer", data: stringer{}, want: "from stringer"},
		{name: "renderer", data: PlanView{Plan: plan.New("demo")}, want: "Plan for DEMO"},
		{name: "complex type without String method", data: testData{Name: "test", Value: 42}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter, err := NewFormatter("text", &FormatterOptions{Writer: &buf, NoColor: true})
			if err != nil {
				t.Fatalf("NewFormatter() error = %v", err)
			}

			err = formatter.Format(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Format() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !strings.Contains(buf.String(), tt.want) {
				t.Errorf("Format() output = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}
