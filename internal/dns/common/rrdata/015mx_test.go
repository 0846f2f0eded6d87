package rrdata

import (
	"reflect"
	"testing"

	"github.com/haukened/rr-dig/internal/dns/domain"
)

func TestRenderMXData(t *testing.T) {
	tests := []struct {
		input    domain.MXData
		expected []string
	}{
		{domain.MXData{Preference: 10, Exchange: "mail.example.com"}, []string{"mail.example.com", "10"}},
		{domain.MXData{Preference: 0, Exchange: "mx.example.org"}, []string{"mx.example.org", "0"}},
		{domain.MXData{Preference: 65535, Exchange: "mail.test.net"}, []string{"mail.test.net", "65535"}},
	}

	for _, tt := range tests {
		got := renderMXData(tt.input)
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("renderMXData(%+v) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
