// Package bootstrap loads a YAML seed of institutions and clients into an
// empty ledger.
package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	id "ekyc/pkg/domain"
)

// MaxSeedFileSize bounds the seed file read at startup.
const MaxSeedFileSize = 4 << 20

// Seed is the on-disk seed document.
type Seed struct {
	Institutions []InstitutionSeed `yaml:"institutions"`
	Clients      []ClientSeed      `yaml:"clients"`
}

// InstitutionSeed describes one institution. Institutions are assigned ids in
// file order, so the first entry becomes FI1.
type InstitutionSeed struct {
	Attributes map[string]any `yaml:"attributes"`
}

// ClientSeed describes one client registered on behalf of RegisteredBy.
type ClientSeed struct {
	RegisteredBy string         `yaml:"registeredBy"`
	Attributes   map[string]any `yaml:"attributes"`
}

// Registrar is the part of the KYC service the seed drives.
type Registrar interface {
	CountInstitutions(ctx context.Context) (uint64, error)
	RegisterInstitution(ctx context.Context, attributes map[string]any) (id.InstitutionID, error)
	RegisterClient(ctx context.Context, caller id.InstitutionID, attributes map[string]any) (id.ClientID, error)
}

// Result reports what Apply wrote.
type Result struct {
	Skipped      bool
	Institutions []id.InstitutionID
	Clients      []id.ClientID
}

// Load reads and parses a seed file.
func Load(path string) (*Seed, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat seed file: %w", err)
	}
	if info.Size() > MaxSeedFileSize {
		return nil, fmt.Errorf("seed file too large: %d bytes (max %d)", info.Size(), MaxSeedFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown fields are rejected.
func Parse(data []byte) (*Seed, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var seed Seed
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshaling seed: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *Seed) validate() error {
	for i, c := range s.Clients {
		if _, err := id.ParseInstitutionID(c.RegisteredBy); err != nil {
			return fmt.Errorf("client %d: registeredBy: %w", i, err)
		}
		if len(c.Attributes) == 0 {
			return fmt.Errorf("client %d: attributes are required", i)
		}
		if rb, ok := c.Attributes["registeredBy"]; ok && rb != c.RegisteredBy {
			return fmt.Errorf("client %d: attributes.registeredBy %v does not match registeredBy %q", i, rb, c.RegisteredBy)
		}
	}
	return nil
}

// Apply writes seed through r when no institution exists yet. Institutions are
// registered first, then each client on behalf of its registrant. Each record
// is its own transaction; a failure stops the run and is returned.
func Apply(ctx context.Context, r Registrar, seed *Seed, logger *slog.Logger) (*Result, error) {
	n, err := r.CountInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting institutions: %w", err)
	}
	if n > 0 {
		logger.InfoContext(ctx, "ledger already seeded, skipping bootstrap", "institutions", n)
		return &Result{Skipped: true}, nil
	}

	res := &Result{}
	for i, inst := range seed.Institutions {
		attrs := inst.Attributes
		if attrs == nil {
			attrs = map[string]any{}
		}
		institutionID, err := r.RegisterInstitution(ctx, attrs)
		if err != nil {
			return res, fmt.Errorf("registering institution %d: %w", i, err)
		}
		res.Institutions = append(res.Institutions, institutionID)
	}
	for i, c := range seed.Clients {
		attrs := make(map[string]any, len(c.Attributes)+1)
		for k, v := range c.Attributes {
			attrs[k] = v
		}
		attrs["registeredBy"] = c.RegisteredBy
		clientID, err := r.RegisterClient(ctx, id.InstitutionID(c.RegisteredBy), attrs)
		if err != nil {
			return res, fmt.Errorf("registering client %d: %w", i, err)
		}
		res.Clients = append(res.Clients, clientID)
	}

	logger.InfoContext(ctx, "ledger bootstrapped",
		"institutions", len(res.Institutions),
		"clients", len(res.Clients),
	)
	return res, nil
}
