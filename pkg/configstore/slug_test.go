// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package configstore

import (
	"strings"
	"testing"
)

func TestNewPromptID(t *testing.T) {
	tests := []struct {
		title string
		base  string
	}{
		{"Greeting v1", "greeting-v1"},
		{"  Hello,   World!! ", "hello-world"},
		{"PULSE: Step #3 / Objection", "pulse-step-3-objection"},
		{"!!!", ""},
		{strings.Repeat("abcd ", 20), "abcd-abcd-abcd-abcd-abcd-abcd-abcd-abcd"},
	}
	for _, tt := range tests {
		id := NewPromptID(tt.title)
		if tt.base == "" {
			if len(id) != 8 {
				t.Errorf("NewPromptID(%q) = %q, want bare 8-char suffix", tt.title, id)
			}
			continue
		}
		if !strings.HasPrefix(id, tt.base+"-") || len(id) != len(tt.base)+9 {
			t.Errorf("NewPromptID(%q) = %q, want %s-<8 chars>", tt.title, id, tt.base)
		}
		if err := ValidateID(id); err != nil {
			t.Errorf("derived id %q is not valid: %v", id, err)
		}
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"greeting-v1", "a", "A.b_c-1"} {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v", id, err)
		}
	}
	for _, id := range []string{"", "-lead", "a/b", "..", "a..b", "sp ace", strings.Repeat("x", 129)} {
		if err := ValidateID(id); err == nil {
			t.Errorf("ValidateID(%q) = nil, want error", id)
		}
	}
}
