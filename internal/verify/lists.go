package verify

import (
	_ "embed"
	"strings"
)

//go:embed lists/disposable.txt
var disposableList string

// blockingProviders refuse or fake RCPT-based probing.
var blockingProviders = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "ymail.com", "rocketmail.com",
	"hotmail.com", "hotmail.co.uk", "outlook.com", "live.com", "msn.com",
	"aol.com", "icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
}

// catchAllProviders accept any local part, so a probe cannot tell a real
// mailbox from a made-up one.
var catchAllProviders = []string{
	"yandex.com", "yandex.ru", "mail.ru", "gmx.com", "gmx.net", "web.de",
}

// roleAccounts are local parts that reach a team rather than a person.
var roleAccounts = []string{
	"abuse", "accounts", "admin", "administrator", "billing", "careers",
	"contact", "enquiries", "help", "hello", "hr", "info", "jobs", "legal",
	"marketing", "media", "no-reply", "noreply", "office", "postmaster",
	"press", "privacy", "sales", "security", "service", "support", "team",
	"webmaster",
}

// domainSet is a case-insensitive set of names.
type domainSet map[string]struct{}

func newDomainSet(lists ...[]string) domainSet {
	s := make(domainSet)
	for _, l := range lists {
		for _, d := range l {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" && !strings.HasPrefix(d, "#") {
				s[d] = struct{}{}
			}
		}
	}
	return s
}

func (s domainSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

func parseList(text string) []string {
	return strings.Split(text, "\n")
}
