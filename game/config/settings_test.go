package config

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestDefaultSettings_Valid(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default settings should validate: %v", err)
	}
	if s.Port != 3001 || s.RateLimit != 100 || s.RateWindow != time.Minute {
		t.Errorf("Unexpected defaults: %+v", s)
	}
	if s.RobotSpeed != 1500*time.Millisecond {
		t.Errorf("Expected 1500ms robot speed, got %v", s.RobotSpeed)
	}
	if s.Addr() != ":3001" {
		t.Errorf("Unexpected addr %q", s.Addr())
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"port", func(s *Settings) { s.Port = 70000 }},
		{"rate limit", func(s *Settings) { s.RateLimit = 0 }},
		{"robot speed", func(s *Settings) { s.RobotSpeed = 0 }},
		{"max players", func(s *Settings) { s.MaxPlayers = 6 }},
		{"colours", func(s *Settings) { s.Colors = s.Colors[:2] }},
		{"board size", func(s *Settings) { s.BoardSize = 10 }},
		{"trusted proxy", func(s *Settings) { s.TrustedProxies = []string{"not-an-ip"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestParseColors(t *testing.T) {
	got := ParseColors(" #fff, #000 ,,#abc")
	if len(got) != 3 || got[0] != "#fff" || got[1] != "#000" || got[2] != "#abc" {
		t.Errorf("Unexpected palette %v", got)
	}
}

func TestParseProxies(t *testing.T) {
	nets, err := ParseProxies([]string{"10.0.0.0/8", "192.0.2.7", "::1"})
	if err != nil {
		t.Fatalf("ParseProxies failed: %v", err)
	}
	if len(nets) != 3 {
		t.Fatalf("Expected 3 networks, got %d", len(nets))
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"192.0.2.7", true},
		{"192.0.2.8", false},
		{"::1", true},
		{"203.0.113.9", false},
	}
	for _, tt := range tests {
		got := false
		for _, n := range nets {
			got = got || n.Contains(net.ParseIP(tt.ip))
		}
		if got != tt.want {
			t.Errorf("%s: expected trusted=%v, got %v", tt.ip, tt.want, got)
		}
	}

	if _, err := ParseProxies([]string{"10.0.0.0/33"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a bad CIDR, got %v", err)
	}
}
