package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/platform/db"
)

type initCommand struct {
	companies string
}

func (c *initCommand) Info() commandInfo {
	return commandInfo{Name: "init", Purpose: "create or migrate the database, optionally importing companies"}
}

func (c *initCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.companies, "companies", "", "YAML company file to import")
}

func (c *initCommand) Init(args []string) error { return checkEmpty(args) }

func (c *initCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	where := env.cfg.DatabasePath
	if env.cfg.UsePostgres() {
		where = "postgres"
	}
	fmt.Fprintf(env.stdout, "database ready (%s)\n", where)
	if c.companies != "" {
		companies, err := db.LoadCompanyFile(c.companies)
		if err != nil {
			return errors.Trace(err)
		}
		added, updated, err := db.SeedCompanies(ctx, svc.Store, companies)
		if err != nil {
			return errors.Trace(err)
		}
		fmt.Fprintf(env.stdout, "companies: %d added, %d updated\n", added, updated)
	}
	if !env.cfg.SMTPConfigured() {
		fmt.Fprintln(env.stdout, "note: SMTP_HOST/SENDER_EMAIL not set, requests cannot be sent yet")
	}
	return nil
}

type addCompanyCommand struct {
	company erasure.Company
}

func (c *addCompanyCommand) Info() commandInfo {
	return commandInfo{Name: "add-company", Args: "--name <name> --email <address>", Purpose: "register a company"}
}

func (c *addCompanyCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.company.Name, "name", "", "company name")
	f.StringVar(&c.company.Email, "email", "", "privacy contact address")
	f.StringVar(&c.company.Website, "website", "", "company website")
	f.StringVar(&c.company.DataProtectionOfficer, "dpo", "", "data protection officer")
	f.StringVar(&c.company.Address, "address", "", "postal address")
	f.StringVar(&c.company.Notes, "notes", "", "free-form notes")
}

func (c *addCompanyCommand) Init(args []string) error {
	if strings.TrimSpace(c.company.Name) == "" || strings.TrimSpace(c.company.Email) == "" {
		return errors.New("--name and --email are required")
	}
	return checkEmpty(args)
}

func (c *addCompanyCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	id, err := svc.Store.AddCompany(ctx, c.company)
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(env.stdout, "company %d added: %s <%s>\n", id, c.company.Name, c.company.Email)
	return nil
}

type importCompaniesCommand struct {
	file string
}

func (c *importCompaniesCommand) Info() commandInfo {
	return commandInfo{Name: "import-companies", Args: "--file <companies.yaml>", Purpose: "add or update companies from a YAML file"}
}

func (c *importCompaniesCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.file, "file", "", "YAML company file")
}

func (c *importCompaniesCommand) Init(args []string) error {
	if c.file == "" && len(args) == 1 {
		c.file, args = args[0], nil
	}
	if c.file == "" {
		return errors.New("--file is required")
	}
	return checkEmpty(args)
}

func (c *importCompaniesCommand) Run(ctx context.Context, env *environment) error {
	companies, err := db.LoadCompanyFile(c.file)
	if err != nil {
		return errors.Trace(err)
	}
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	added, updated, err := db.SeedCompanies(ctx, svc.Store, companies)
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(env.stdout, "companies: %d added, %d updated\n", added, updated)
	return nil
}

type listCompaniesCommand struct{}

func (c *listCompaniesCommand) Info() commandInfo {
	return commandInfo{Name: "list-companies", Purpose: "list registered companies"}
}

func (c *listCompaniesCommand) SetFlags(f *gnuflag.FlagSet) {}

func (c *listCompaniesCommand) Init(args []string) error { return checkEmpty(args) }

func (c *listCompaniesCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	companies, err := svc.Store.ListCompanies(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if len(companies) == 0 {
		fmt.Fprintln(env.stdout, "no companies registered")
		return nil
	}
	rows := make([][]string, 0, len(companies))
	for _, co := range companies {
		rows = append(rows, []string{strconv.FormatInt(co.ID, 10), co.Name, co.Email, co.DataProtectionOfficer})
	}
	writeTable(env.stdout, []string{"ID", "NAME", "EMAIL", "DPO"}, rows)
	return nil
}

// resolveCompany accepts a numeric id or an exact company name.
func resolveCompany(ctx context.Context, store erasure.StoreAPI, ref string) (erasure.Company, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return store.GetCompany(ctx, id)
	}
	return store.GetCompanyByName(ctx, ref)
}
