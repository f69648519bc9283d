package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	authorization "github.com/betandbeat/catalog-authorization"
)

func (s *Store) FindByName(ctx context.Context, name string) (authorization.Role, error) {
	var r authorization.Role
	err := s.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).Scan(&r.ID, &r.Name)
	if err != nil {
		return authorization.Role{}, mapError("find role by name", err)
	}
	return r, nil
}

func (s *Store) FindRoleByID(ctx context.Context, id int64) (authorization.Role, error) {
	var r authorization.Role
	err := s.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE id = $1`, id).Scan(&r.ID, &r.Name)
	if err != nil {
		return authorization.Role{}, mapError("find role by id", err)
	}
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]authorization.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, mapError("list roles", err)
	}
	roles, err := pgx.CollectRows(rows, pgx.RowToStructByPos[authorization.Role])
	if err != nil {
		return nil, mapError("scan roles", err)
	}
	return roles, nil
}

func (s *Store) SaveRole(ctx context.Context, r authorization.Role) (authorization.Role, error) {
	if r.ID == 0 {
		err := s.pool.QueryRow(ctx, `INSERT INTO roles (name) VALUES ($1) RETURNING id`, r.Name).Scan(&r.ID)
		if err != nil {
			return authorization.Role{}, mapError("insert role", err)
		}
		return r, nil
	}
	tag, err := s.pool.Exec(ctx, `UPDATE roles SET name = $2 WHERE id = $1`, r.ID, r.Name)
	if err != nil {
		return authorization.Role{}, mapError("update role", err)
	}
	if tag.RowsAffected() == 0 {
		return authorization.Role{}, fmt.Errorf("role %d: %w", r.ID, authorization.ErrNotFound)
	}
	return r, nil
}

// DeleteRole relies on the RESTRICT foreign key as a last line behind
// the holder check done by the caller.
func (s *Store) DeleteRole(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mapError("delete role", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role %d: %w", id, authorization.ErrNotFound)
	}
	return nil
}

func (s *Store) Holders(ctx context.Context, roleID int64) ([]int64, error) {
	if _, err := s.FindRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT principal_id FROM principal_roles WHERE role_id = $1 ORDER BY principal_id`, roleID)
	if err != nil {
		return nil, mapError("list holders", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, mapError("scan holders", err)
	}
	return ids, nil
}

func (s *Store) HolderCount(ctx context.Context, roleID int64) (int, error) {
	if _, err := s.FindRoleByID(ctx, roleID); err != nil {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM principal_roles WHERE role_id = $1`, roleID).Scan(&n); err != nil {
		return 0, mapError("count holders", err)
	}
	return n, nil
}

var _ authorization.RoleRegistry = (*Store)(nil)
