package domains

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/likexian/whois"

	"github.com/thinkscotty/outreach/internal/models"
)

// Verdict is a checker's answer for one domain.
type Verdict struct {
	Status     models.DomainStatus
	ExpiryDate string
	Err        error
}

// Checker decides whether a domain is available.
type Checker interface {
	Method() string
	Check(ctx context.Context, domain string) Verdict
}

// Resolver is the part of net.Resolver the DNS checker uses.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSChecker treats a domain that resolves as taken and NXDOMAIN as
// available. Registered domains without records show up as available, so
// the verdict is a first pass only.
type DNSChecker struct {
	resolver Resolver
	timeout  time.Duration
}

func NewDNSChecker(r Resolver, timeout time.Duration) *DNSChecker {
	if r == nil {
		r = net.DefaultResolver
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DNSChecker{resolver: r, timeout: timeout}
}

func (c *DNSChecker) Method() string { return "dns" }

func (c *DNSChecker) Check(ctx context.Context, domain string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addrs, err := c.resolver.LookupHost(ctx, domain)
	if err == nil && len(addrs) > 0 {
		return Verdict{Status: models.DomainTaken}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return Verdict{Status: models.DomainAvailable}
	}
	if err == nil {
		return Verdict{Status: models.DomainAvailable}
	}
	return Verdict{Status: models.DomainUncertain, Err: err}
}

// WhoisQuerier returns the raw WHOIS response for a domain.
type WhoisQuerier func(ctx context.Context, domain string) (string, error)

// WhoisChecker classifies raw WHOIS responses.
type WhoisChecker struct {
	query WhoisQuerier
}

// NewWhoisChecker uses the likexian/whois client when query is nil.
func NewWhoisChecker(query WhoisQuerier, timeout time.Duration) *WhoisChecker {
	if query == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client := whois.NewClient()
		client.SetTimeout(timeout)
		query = func(ctx context.Context, domain string) (string, error) {
			type result struct {
				raw string
				err error
			}
			done := make(chan result, 1)
			go func() {
				raw, err := client.Whois(domain)
				done <- result{raw, err}
			}()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case r := <-done:
				return r.raw, r.err
			}
		}
	}
	return &WhoisChecker{query: query}
}

func (c *WhoisChecker) Method() string { return "whois" }

func (c *WhoisChecker) Check(ctx context.Context, domain string) Verdict {
	raw, err := c.query(ctx, domain)
	if err != nil {
		return Verdict{Status: models.DomainUncertain, Err: err}
	}
	return ClassifyWhois(raw)
}

var notFoundPatterns = []string{
	"no match for",
	"not found",
	"no data found",
	"no entries found",
	"no object found",
	"domain not found",
	"status: free",
	"status: available",
	"is available for registration",
}

var registeredPatterns = []string{
	"domain name:",
	"creation date:",
	"created:",
	"registrar:",
	"registry domain id:",
	"domain status:",
	"name server:",
}

var expiryPattern = regexp.MustCompile(`(?im)^\s*(?:registry expiry date|registrar registration expiration date|expiration date|expiry date|expires(?: on)?|paid-till)\s*:\s*(\S+)`)

// ClassifyWhois maps a raw response to a status. Not-found markers win over
// registration markers because some registries echo "Domain Name:" in
// their not-found reply.
func ClassifyWhois(raw string) Verdict {
	lower := strings.ToLower(raw)
	for _, p := range notFoundPatterns {
		if strings.Contains(lower, p) {
			return Verdict{Status: models.DomainAvailable}
		}
	}
	for _, p := range registeredPatterns {
		if strings.Contains(lower, p) {
			v := Verdict{Status: models.DomainTaken}
			if m := expiryPattern.FindStringSubmatch(raw); len(m) == 2 {
				v.ExpiryDate = m[1]
			}
			return v
		}
	}
	return Verdict{Status: models.DomainUncertain, Err: errors.New("unrecognized whois response")}
}
