package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wricardo/carcacity/game/engine"
)

// Settings holds process-wide server options. main fills it from flags and
// environment variables.
type Settings struct {
	Host       string
	Port       int
	CORSOrigin string
	RateLimit  int // requests per RateWindow per client IP
	RateWindow time.Duration
	RobotSpeed time.Duration // initial pause between robot moves
	MaxPlayers int
	BoardSize  int
	Colors     []string
	CatalogDir string
	SessionTTL time.Duration
	Debug      bool

	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
}

// DefaultSettings returns the stock server configuration.
func DefaultSettings() Settings {
	return Settings{
		Host:       "",
		Port:       3001,
		CORSOrigin: "*",
		RateLimit:  100,
		RateWindow: time.Minute,
		RobotSpeed: 1500 * time.Millisecond,
		MaxPlayers: engine.MaxPlayers,
		BoardSize:  engine.DefaultBoardSize,
		Colors:     append([]string(nil), engine.DefaultColors...),
		CatalogDir: "configs",
		SessionTTL: 2 * time.Hour,
	}
}

// ParseColors splits a comma separated palette.
func ParseColors(s string) []string {
	return SplitList(s)
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ParseProxies turns IPs and CIDRs into networks. A bare IP matches only itself.
func ParseProxies(proxies []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(proxies))
	for _, p := range proxies {
		if _, n, err := net.ParseCIDR(p); err == nil {
			nets = append(nets, n)
			continue
		}
		ip := net.ParseIP(p)
		if ip == nil {
			return nil, fmt.Errorf("%w: trusted proxy %q is not an IP or CIDR", ErrInvalidConfig, p)
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

// Validate checks the settings for values the server cannot run with.
func (s Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, s.Port)
	}
	if s.RateLimit <= 0 || s.RateWindow <= 0 {
		return fmt.Errorf("%w: rate limit must be positive", ErrInvalidConfig)
	}
	if s.RobotSpeed <= 0 {
		return fmt.Errorf("%w: robot speed must be positive", ErrInvalidConfig)
	}
	if s.MaxPlayers < 1 || s.MaxPlayers > engine.MaxPlayers {
		return fmt.Errorf("%w: max players must be between 1 and %d", ErrInvalidConfig, engine.MaxPlayers)
	}
	if len(s.Colors) < s.MaxPlayers {
		return fmt.Errorf("%w: need at least %d colours, got %d", ErrInvalidConfig, s.MaxPlayers, len(s.Colors))
	}
	if err := engine.ValidateBoardSize(s.BoardSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := ParseProxies(s.TrustedProxies); err != nil {
		return err
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
