package risk

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// PrefixOracle classifies addresses by configured CIDR lists. It is a local
// heuristic and stands in for a real reputation feed.
type PrefixOracle struct {
	vpn       []netip.Prefix
	tor       []netip.Prefix
	countries []countryPrefix
}

type countryPrefix struct {
	prefix  netip.Prefix
	country string
}

// NewPrefixOracle parses the prefix lists. countries maps CIDR -> ISO code.
func NewPrefixOracle(vpn, tor []string, countries map[string]string) (*PrefixOracle, error) {
	o := &PrefixOracle{}
	var err error
	if o.vpn, err = parsePrefixes(vpn); err != nil {
		return nil, fmt.Errorf("vpn prefixes: %w", err)
	}
	if o.tor, err = parsePrefixes(tor); err != nil {
		return nil, fmt.Errorf("tor prefixes: %w", err)
	}
	for cidr, cc := range countries {
		p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("country prefix %q: %w", cidr, err)
		}
		o.countries = append(o.countries, countryPrefix{prefix: p.Masked(), country: strings.ToUpper(cc)})
	}
	return o, nil
}

func (o *PrefixOracle) Lookup(ctx context.Context, ip string) (OracleResult, error) {
	if err := ctx.Err(); err != nil {
		return OracleResult{}, err
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return OracleResult{}, fmt.Errorf("invalid address %q: %w", ip, err)
	}
	addr = addr.Unmap()

	res := OracleResult{
		IsVPN: containsAddr(o.vpn, addr),
		IsTor: containsAddr(o.tor, addr),
	}
	for _, cp := range o.countries {
		if cp.prefix.Contains(addr) {
			res.CountryCode = cp.country
			break
		}
	}
	return res, nil
}

func parsePrefixes(raw []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// HTTPOracle queries an external reputation service at GET {baseURL}/{ip}.
type HTTPOracle struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

type httpOracleResponse struct {
	IsVPN       bool   `json:"is_vpn"`
	IsTor       bool   `json:"is_tor"`
	CountryCode string `json:"country_code"`
}

// NewHTTPOracle creates a client for the reputation service.
func NewHTTPOracle(baseURL, apiKey string, timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &HTTPOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
	}
}

func (o *HTTPOracle) Lookup(ctx context.Context, ip string) (OracleResult, error) {
	if err := ctx.Err(); err != nil {
		return OracleResult{}, err
	}
	timeout := o.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return OracleResult{}, ErrOracleTimeout
	}

	agent := fiber.Get(o.baseURL + "/" + url.PathEscape(ip))
	agent.Timeout(timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if o.apiKey != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+o.apiKey)
	}
	if err := agent.Parse(); err != nil {
		return OracleResult{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	var body httpOracleResponse
	code, _, errs := agent.Struct(&body)
	if code != fiber.StatusOK {
		if len(errs) > 0 {
			return OracleResult{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, errors.Join(errs...))
		}
		return OracleResult{}, fmt.Errorf("%w: status %d", ErrOracleUnavailable, code)
	}
	if len(errs) > 0 {
		return OracleResult{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, errors.Join(errs...))
	}

	return OracleResult{
		IsVPN:       body.IsVPN,
		IsTor:       body.IsTor,
		CountryCode: strings.ToUpper(body.CountryCode),
	}, nil
}
