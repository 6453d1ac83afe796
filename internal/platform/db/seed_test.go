package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure/litestore"
	"github.com/LouziusMedia/LoeschMich/internal/platform/db"
)

const companiesYAML = `companies:
  - name: Acme GmbH
    email: datenschutz@acme.test
    website: https://acme.test
    dpo: Dr. Daten
  - name: Beta AG
    email: privacy@beta.test
`

func TestParseCompanies(t *testing.T) {
	companies, err := db.ParseCompanies([]byte(companiesYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(companies))
	}
	if companies[0].DataProtectionOfficer != "Dr. Daten" || companies[0].Website != "https://acme.test" {
		t.Fatalf("unexpected first company %+v", companies[0])
	}

	if _, err := db.ParseCompanies([]byte("companies:\n  - name: Nameless\n")); !errors.Is(err, errors.NotValid) {
		t.Fatalf("expected missing email to be invalid, got %v", err)
	}
	if _, err := db.ParseCompanies([]byte("companies: [")); !errors.Is(err, errors.NotValid) {
		t.Fatalf("expected broken yaml to be invalid, got %v", err)
	}
}

func TestSeedCompaniesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	handle, err := db.OpenSQLite(ctx, filepath.Join(dir, "nested", "seed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer handle.Close()
	if err := db.MigrateSQLite(ctx, handle); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.MigrateSQLite(ctx, handle); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}
	store := litestore.New(handle, nil)

	path := filepath.Join(dir, "companies.yaml")
	if err := os.WriteFile(path, []byte(companiesYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	companies, err := db.LoadCompanyFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	added, updated, err := db.SeedCompanies(ctx, store, companies)
	if err != nil || added != 2 || updated != 0 {
		t.Fatalf("first seed: added=%d updated=%d err=%v", added, updated, err)
	}
	companies[1].Email = "dpo@beta.test"
	added, updated, err = db.SeedCompanies(ctx, store, companies)
	if err != nil || added != 0 || updated != 2 {
		t.Fatalf("second seed: added=%d updated=%d err=%v", added, updated, err)
	}

	beta, err := store.GetCompanyByName(ctx, "Beta AG")
	if err != nil || beta.Email != "dpo@beta.test" {
		t.Fatalf("update not applied: %+v %v", beta, err)
	}
	all, err := store.ListCompanies(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 companies, got %d %v", len(all), err)
	}

	if _, err := db.LoadCompanyFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}
