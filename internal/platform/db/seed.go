package db

import (
	"context"
	"os"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

type companyFile struct {
	Companies []erasure.Company `yaml:"companies"`
}

// LoadCompanyFile reads a YAML document of the form
//
//	companies:
//	  - name: Example GmbH
//	    email: datenschutz@example.de
func LoadCompanyFile(path string) ([]erasure.Company, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ParseCompanies(raw)
}

func ParseCompanies(raw []byte) ([]erasure.Company, error) {
	var doc companyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.NewNotValid(err, "parsing company file")
	}
	for i, c := range doc.Companies {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
			return nil, errors.NotValidf("company entry %d without name or email", i+1)
		}
	}
	return doc.Companies, nil
}

// SeedCompanies adds unknown companies and updates known ones by name.
func SeedCompanies(ctx context.Context, store erasure.StoreAPI, companies []erasure.Company) (added, updated int, err error) {
	for _, c := range companies {
		existing, err := store.GetCompanyByName(ctx, c.Name)
		if err == nil {
			c.ID = existing.ID
			if err := store.UpdateCompany(ctx, c); err != nil {
				return added, updated, errors.Annotatef(err, "updating %q", c.Name)
			}
			updated++
			continue
		}
		if !errors.Is(err, errors.NotFound) {
			return added, updated, errors.Trace(err)
		}
		if _, err := store.AddCompany(ctx, c); err != nil {
			return added, updated, errors.Trace(err)
		}
		added++
	}
	return added, updated, nil
}
