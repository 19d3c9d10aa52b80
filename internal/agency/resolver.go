package agency

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMalformedID   = errors.New("agency: malformed agency id")
	ErrUnroutable    = errors.New("agency: recipient does not match routing pattern")
	ErrNotFound      = errors.New("agency: not found")
	ErrNoDirectory   = errors.New("agency: directory not configured")
	ErrInvalidPrefix = errors.New("agency: invalid routing prefix")
)

// ValidateID accepts only the canonical 8-4-4-4-12 UUID form.
func ValidateID(id string) error {
	if len(id) != 36 {
		return ErrMalformedID
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrMalformedID
	}
	return nil
}

// Resolver maps webhook recipient addresses to agencies.
type Resolver struct {
	dir     Directory
	pattern *regexp.Regexp
}

// NewResolver builds a Resolver for addresses shaped <prefix>-<key>@domain.
func NewResolver(dir Directory, prefix string) (*Resolver, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, ErrInvalidPrefix
	}
	pattern, err := regexp.Compile(`^` + regexp.QuoteMeta(prefix) + `-([a-z0-9]+)@[^@\s]+$`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrefix, err)
	}
	return &Resolver{dir: dir, pattern: pattern}, nil
}

// RoutingKey extracts the ingest key from the first recipient that matches the pattern.
// recipient may be a comma separated list and may carry display names.
func (r *Resolver) RoutingKey(recipient string) (string, error) {
	for _, addr := range splitAddresses(recipient) {
		if m := r.pattern.FindStringSubmatch(addr); m != nil {
			return m[1], nil
		}
	}
	return "", ErrUnroutable
}

// ResolveRecipient returns the agency owning the routing address in recipient.
func (r *Resolver) ResolveRecipient(ctx context.Context, recipient string) (Agency, error) {
	if r.dir == nil {
		return Agency{}, ErrNoDirectory
	}
	key, err := r.RoutingKey(recipient)
	if err != nil {
		return Agency{}, err
	}
	a, err := r.dir.ByIngestKey(ctx, key)
	if err != nil {
		return Agency{}, err
	}
	return a, nil
}

func splitAddresses(raw string) []string {
	var out []string
	if list, err := mail.ParseAddressList(raw); err == nil {
		for _, a := range list {
			out = append(out, strings.ToLower(a.Address))
		}
		return out
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
