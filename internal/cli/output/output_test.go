package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("model", "alias", "nature")
	table.AddRow("user", "pets", "oneToMany")
	table.Render(&buf)

	out := buf.String()
	if !strings.Contains(out, "MODEL") || !strings.Contains(out, "oneToMany") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, map[string]string{"state": "ready"}); err != nil {
		t.Fatalf("PrintJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"state": "ready"`) {
		t.Fatalf("unexpected json output: %s", buf.String())
	}
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintYAML(&buf, map[string]string{"state": "ready"}); err != nil {
		t.Fatalf("PrintYAML: %v", err)
	}
	if !strings.Contains(buf.String(), "state: ready") {
		t.Fatalf("unexpected yaml output: %s", buf.String())
	}
}
