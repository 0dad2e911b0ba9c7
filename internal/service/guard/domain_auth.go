package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/mailguard/internal/domain"
)

// CheckDomainAuth reports which of SPF, DKIM and DMARC are not passing for
// the domain of fromAddress, or for the default domain when fromAddress is
// empty. An unregistered domain is trusted to the sending provider and
// reported verified.
func (s *Service) CheckDomainAuth(ctx context.Context, fromAddress string) (domain.DomainAuth, error) {
	name := domainOf(fromAddress)

	var (
		d   *domain.SendingDomain
		err error
	)
	if name == "" {
		d, err = s.domains.DefaultDomain(ctx)
	} else {
		d, err = s.domains.FindDomain(ctx, name)
	}
	if errors.Is(err, ErrDomainNotFound) {
		return domain.DomainAuth{Domain: name, Verified: true, Missing: []string{}}, nil
	}
	if err != nil {
		return domain.DomainAuth{}, fmt.Errorf("find sending domain: %w", err)
	}

	if d.Verified {
		return domain.DomainAuth{Domain: d.Name, Verified: true, Missing: []string{}}, nil
	}
	return domain.DomainAuth{Domain: d.Name, Missing: MissingMechanisms(d.LastCheckResult)}, nil
}

// MissingMechanisms lists the mechanisms in a stored check result that are
// not "pass". Each value may be a bare status string or an object with a
// "status" field. An empty or malformed result reports all three.
func MissingMechanisms(lastCheck string) []string {
	all := append([]string(nil), domain.AuthMechanisms...)
	if strings.TrimSpace(lastCheck) == "" {
		return all
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(lastCheck), &raw); err != nil {
		return all
	}

	missing := []string{}
	for _, mech := range domain.AuthMechanisms {
		if !strings.EqualFold(mechanismStatus(raw[mech]), "pass") {
			missing = append(missing, mech)
		}
	}
	return missing
}

func mechanismStatus(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var status string
	if err := json.Unmarshal(v, &status); err == nil {
		return status
	}
	var obj struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(v, &obj); err == nil {
		return obj.Status
	}
	return ""
}

// CheckRecord is one mechanism's entry in a stored check result.
type CheckRecord struct {
	Status string `json:"status"`
	Record string `json:"record,omitempty"`
}

// RefreshDomainAuth looks up the SPF, DKIM and DMARC TXT records of a
// registered domain and stores the outcome. The domain is verified when all
// three pass.
func (s *Service) RefreshDomainAuth(ctx context.Context, name string) (domain.DomainAuth, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	d, err := s.domains.FindDomain(ctx, name)
	if err != nil {
		return domain.DomainAuth{}, fmt.Errorf("find sending domain %s: %w", name, err)
	}

	selector := d.DKIMSelector
	if selector == "" {
		selector = "default"
	}
	result := map[string]CheckRecord{
		"spf":   s.lookupTXT(ctx, d.Name, "v=spf1"),
		"dkim":  s.lookupTXT(ctx, selector+"._domainkey."+d.Name, "v=DKIM1"),
		"dmarc": s.lookupTXT(ctx, "_dmarc."+d.Name, "v=DMARC1"),
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return domain.DomainAuth{}, fmt.Errorf("encode check result: %w", err)
	}

	missing := MissingMechanisms(string(encoded))
	verified := len(missing) == 0
	if err := s.domains.SaveCheck(ctx, d.Name, verified, string(encoded), s.now()); err != nil {
		return domain.DomainAuth{}, fmt.Errorf("save check result: %w", err)
	}
	return domain.DomainAuth{Domain: d.Name, Verified: verified, Missing: missing}, nil
}

// lookupTXT finds a TXT record starting with prefix. DNS errors count as a
// missing record.
func (s *Service) lookupTXT(ctx context.Context, name, prefix string) CheckRecord {
	records, err := s.txt.LookupTXT(ctx, name)
	if err != nil {
		return CheckRecord{Status: "none"}
	}
	for _, r := range records {
		r = strings.TrimSpace(r)
		if len(r) >= len(prefix) && strings.EqualFold(r[:len(prefix)], prefix) {
			return CheckRecord{Status: "pass", Record: r}
		}
	}
	return CheckRecord{Status: "fail"}
}

func domainOf(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if i := strings.LastIndex(address, "@"); i >= 0 {
		return address[i+1:]
	}
	return address
}
