package litestore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

const companyColumns = `id, name, email, website, dpo, address, notes, created_at, updated_at`

func (s *Store) AddCompany(ctx context.Context, c erasure.Company) (int64, error) {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
		return 0, errors.NotValidf("company without name or email")
	}
	now := encodeTime(time.Now())
	res, err := s.DB.ExecContext(ctx, `
    INSERT INTO companies (name, email, website, dpo, address, notes, created_at, updated_at)
    VALUES (?,?,?,?,?,?,?,?)
  `, c.Name, c.Email, c.Website, c.DataProtectionOfficer, c.Address, c.Notes, now, now)
	if err != nil {
		return 0, errors.Annotatef(err, "adding company %q", c.Name)
	}
	return res.LastInsertId()
}

func (s *Store) GetCompany(ctx context.Context, id int64) (erasure.Company, error) {
	c, err := scanCompany(s.DB.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return erasure.Company{}, errors.NotFoundf("company %d", id)
	}
	return c, errors.Trace(err)
}

func (s *Store) GetCompanyByName(ctx context.Context, name string) (erasure.Company, error) {
	c, err := scanCompany(s.DB.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return erasure.Company{}, errors.NotFoundf("company %q", name)
	}
	return c, errors.Trace(err)
}

func (s *Store) ListCompanies(ctx context.Context) ([]erasure.Company, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []erasure.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCompany(ctx context.Context, c erasure.Company) error {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE companies
    SET name = ?, email = ?, website = ?, dpo = ?, address = ?, notes = ?, updated_at = ?
    WHERE id = ?
  `, c.Name, c.Email, c.Website, c.DataProtectionOfficer, c.Address, c.Notes, encodeTime(time.Now()), c.ID)
	if err != nil {
		return errors.Trace(err)
	}
	return affected(res, "company", c.ID)
}

func scanCompany(row scanner) (erasure.Company, error) {
	var (
		c                erasure.Company
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Website, &c.DataProtectionOfficer, &c.Address, &c.Notes, &created, &updated); err != nil {
		return c, err
	}
	var err error
	if c.CreatedAt, err = decodeTime(created); err != nil {
		return c, err
	}
	c.UpdatedAt, err = decodeTime(updated)
	return c, err
}
