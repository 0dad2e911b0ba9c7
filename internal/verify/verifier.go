// Package verify classifies an email address as valid, invalid, risky,
// catch-all or disposable without sending mail.
//
// Checks run cheapest first and stop at the first conclusive signal:
// syntax, disposable domain, MX records, provider policy, then a live SMTP
// probe of the primary exchanger followed by a catch-all probe.
package verify

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/badoux/checkmail"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/smtpprobe"
)

var syntaxRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[a-zA-Z]{2,}$`)

// Prober runs one SMTP probe. *smtpprobe.Client satisfies it.
type Prober interface {
	Probe(ctx context.Context, mxHost, email string) smtpprobe.Result
}

// Rand picks characters for the catch-all probe address.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// Verifier runs the classification pipeline. It is safe for concurrent use.
type Verifier struct {
	resolver     Resolver
	prober       Prober
	rnd          Rand
	now          func() time.Time
	batchDelay   time.Duration
	strictSyntax bool
	disposable   domainSet
	blocking     domainSet
	catchAll     domainSet
	roles        domainSet
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithRand replaces the randomness used for catch-all probe addresses.
func WithRand(r Rand) Option { return func(v *Verifier) { v.rnd = r } }

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option { return func(v *Verifier) { v.now = now } }

// WithBatchDelay overrides the pause between batch items.
func WithBatchDelay(d time.Duration) Option {
	return func(v *Verifier) {
		if d >= 0 {
			v.batchDelay = d
		}
	}
}

// WithStrictSyntax additionally requires an RFC 5322 style address.
func WithStrictSyntax(on bool) Option { return func(v *Verifier) { v.strictSyntax = on } }

// WithDisposableDomains adds domains to the built-in disposable list.
func WithDisposableDomains(domains ...string) Option {
	return func(v *Verifier) { v.disposable = newDomainSet(keys(v.disposable), domains) }
}

// WithCatchAllDomains adds domains known to accept every address.
func WithCatchAllDomains(domains ...string) Option {
	return func(v *Verifier) { v.catchAll = newDomainSet(keys(v.catchAll), domains) }
}

// WithBlockingDomains adds providers that refuse probing.
func WithBlockingDomains(domains ...string) Option {
	return func(v *Verifier) { v.blocking = newDomainSet(keys(v.blocking), domains) }
}

// DefaultBatchDelay spaces out probes within a batch.
const DefaultBatchDelay = 500 * time.Millisecond

// New creates a verifier.
func New(resolver Resolver, prober Prober, opts ...Option) *Verifier {
	v := &Verifier{
		resolver:   resolver,
		prober:     prober,
		rnd:        globalRand{},
		now:        time.Now,
		batchDelay: DefaultBatchDelay,
		disposable: newDomainSet(parseList(disposableList)),
		blocking:   newDomainSet(blockingProviders),
		catchAll:   newDomainSet(catchAllProviders),
		roles:      newDomainSet(roleAccounts),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify classifies one address. It never fails: network problems end up
// as a risky or invalid verdict with a reason.
func (v *Verifier) Verify(ctx context.Context, email string) domain.VerificationRecord {
	email = strings.ToLower(strings.TrimSpace(email))
	rec := domain.VerificationRecord{
		Email:     email,
		Details:   domain.VerificationDetails{SMTPCheck: domain.SMTPSkipped},
		CheckedAt: v.now(),
	}

	if !v.validSyntax(email) {
		return conclude(rec, domain.VerifyInvalid, "Invalid email syntax")
	}
	rec.Details.Syntax = true
	at := strings.LastIndex(email, "@")
	local, host := email[:at], email[at+1:]

	if v.disposable.has(host) {
		rec.Details.Disposable = true
		return conclude(rec, domain.VerifyDisposable, "Disposable email provider")
	}

	mxs, err := v.resolver.LookupMX(ctx, host)
	if err != nil || len(mxs) == 0 {
		return conclude(rec, domain.VerifyInvalid, "No MX records found for domain")
	}
	rec.Details.MXExists = true
	rec.Details.RoleAccount = v.roles.has(local)

	if v.blocking.has(host) {
		rec.Details.SMTPCheck = domain.SMTPBlocked
		return conclude(rec, domain.VerifyRisky, "Provider blocks SMTP verification")
	}
	if v.catchAll.has(host) {
		rec.Details.CatchAll = true
		return conclude(rec, domain.VerifyCatchAll, "Domain is a known catch-all provider")
	}

	mx := mxs[0].Exchange
	res := v.prober.Probe(ctx, mx, email)
	rec.Details.SMTPCheck = domain.SMTPCheck(res.Outcome)
	rec.Details.SMTPResponse = res.Response

	switch res.Outcome {
	case smtpprobe.Failed:
		return conclude(rec, domain.VerifyInvalid, fmt.Sprintf("Mailbox does not exist (%s)", res.Reason))
	case smtpprobe.Blocked:
		return conclude(rec, domain.VerifyRisky, fmt.Sprintf("SMTP check blocked: %s", res.Reason))
	case smtpprobe.Greylisted:
		return conclude(rec, domain.VerifyRisky, fmt.Sprintf("SMTP check inconclusive: %s", res.Reason))
	}

	probe := v.randomLocalPart() + "@" + host
	if v.prober.Probe(ctx, mx, probe).Outcome == smtpprobe.Passed {
		rec.Details.CatchAll = true
		return conclude(rec, domain.VerifyCatchAll, "Domain accepts all addresses")
	}
	if rec.Details.RoleAccount {
		return conclude(rec, domain.VerifyRisky, "Role-based address")
	}
	return conclude(rec, domain.VerifyValid, "Mailbox exists")
}

func (v *Verifier) validSyntax(email string) bool {
	if !syntaxRe.MatchString(email) {
		return false
	}
	if v.strictSyntax && checkmail.ValidateFormat(email) != nil {
		return false
	}
	return true
}

const localPartChars = "abcdefghijklmnopqrstuvwxyz0123456789"

func (v *Verifier) randomLocalPart() string {
	var b strings.Builder
	b.WriteString("mg-")
	for i := 0; i < 16; i++ {
		b.WriteByte(localPartChars[v.rnd.Intn(len(localPartChars))])
	}
	return b.String()
}

func conclude(rec domain.VerificationRecord, result domain.VerificationResult, reason string) domain.VerificationRecord {
	rec.Result = result
	rec.Reason = reason
	return rec
}

func keys(s domainSet) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
