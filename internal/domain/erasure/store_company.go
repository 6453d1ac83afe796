package erasure

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/juju/errors"
)

const companyColumns = `id, name, email, website, dpo, address, notes, created_at, updated_at`

func (s *Store) AddCompany(ctx context.Context, c Company) (int64, error) {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
		return 0, errors.NotValidf("company without name or email")
	}
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO companies (name, email, website, dpo, address, notes)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, c.Name, c.Email, c.Website, c.DataProtectionOfficer, c.Address, c.Notes).Scan(&id)
	if err != nil {
		return 0, errors.Annotatef(err, "adding company %q", c.Name)
	}
	return id, nil
}

func (s *Store) GetCompany(ctx context.Context, id int64) (Company, error) {
	c, err := scanCompany(s.DB.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, errors.NotFoundf("company %d", id)
	}
	return c, errors.Trace(err)
}

func (s *Store) GetCompanyByName(ctx context.Context, name string) (Company, error) {
	c, err := scanCompany(s.DB.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, errors.NotFoundf("company %q", name)
	}
	return c, errors.Trace(err)
}

func (s *Store) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCompany(ctx context.Context, c Company) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE companies
    SET name = $1, email = $2, website = $3, dpo = $4, address = $5, notes = $6, updated_at = now()
    WHERE id = $7
  `, c.Name, c.Email, c.Website, c.DataProtectionOfficer, c.Address, c.Notes, c.ID)
	if err != nil {
		return errors.Trace(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFoundf("company %d", c.ID)
	}
	return nil
}

func scanCompany(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Website, &c.DataProtectionOfficer, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
