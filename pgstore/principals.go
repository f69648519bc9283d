package pgstore

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	authorization "github.com/betandbeat/catalog-authorization"
)

// Store implements authorization.PrincipalStore and
// authorization.RoleRegistry.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectPrincipalRoles = `
SELECT r.id, r.name
FROM principal_roles pr
JOIN roles r ON r.id = pr.role_id
WHERE pr.principal_id = $1
ORDER BY r.id`

func (s *Store) FindByID(ctx context.Context, id int64) (authorization.Principal, error) {
	return s.findOne(ctx, "find principal by id", `SELECT id, username, password_hash FROM principals WHERE id = $1`, id)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (authorization.Principal, error) {
	return s.findOne(ctx, "find principal by username", `SELECT id, username, password_hash FROM principals WHERE username = $1`, username)
}

func (s *Store) findOne(ctx context.Context, op, query string, arg any) (authorization.Principal, error) {
	var p authorization.Principal
	if err := s.pool.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Username, &p.PasswordHash); err != nil {
		return authorization.Principal{}, mapError(op, err)
	}
	roles, err := s.principalRoles(ctx, p.ID)
	if err != nil {
		return authorization.Principal{}, err
	}
	p.Roles = roles
	return p, nil
}

func (s *Store) principalRoles(ctx context.Context, principalID int64) ([]authorization.RoleRef, error) {
	rows, err := s.pool.Query(ctx, selectPrincipalRoles, principalID)
	if err != nil {
		return nil, mapError("list principal roles", err)
	}
	refs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[authorization.RoleRef])
	if err != nil {
		return nil, mapError("scan principal roles", err)
	}
	return refs, nil
}

// Save writes the principal row and its complete role set in one
// transaction.
func (s *Store) Save(ctx context.Context, p authorization.Principal) (authorization.Principal, error) {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if p.ID == 0 {
			err := tx.QueryRow(ctx,
				`INSERT INTO principals (username, password_hash) VALUES ($1, $2) RETURNING id`,
				p.Username, p.PasswordHash,
			).Scan(&p.ID)
			if err != nil {
				return mapError("insert principal", err)
			}
		} else {
			tag, err := tx.Exec(ctx,
				`UPDATE principals SET username = $2, password_hash = $3 WHERE id = $1`,
				p.ID, p.Username, p.PasswordHash,
			)
			if err != nil {
				return mapError("update principal", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("principal %d: %w", p.ID, authorization.ErrNotFound)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM principal_roles WHERE principal_id = $1`, p.ID); err != nil {
				return mapError("clear principal roles", err)
			}
		}
		for _, r := range p.Roles {
			if _, err := tx.Exec(ctx,
				`INSERT INTO principal_roles (principal_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				p.ID, r.ID,
			); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("role %d: %w", r.ID, authorization.ErrNotFound)
				}
				return mapError("insert principal role", err)
			}
		}
		return nil
	})
	if err != nil {
		return authorization.Principal{}, err
	}
	return s.FindByID(ctx, p.ID)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM principals WHERE id = $1`, id)
	if err != nil {
		return mapError("delete principal", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("principal %d: %w", id, authorization.ErrNotFound)
	}
	return nil
}

type principalRow struct {
	ID           int64
	Username     string
	PasswordHash string
	RoleID       *int64
	RoleName     *string
}

// List loads principals with their roles and filters usernames with
// the glob pattern.
func (s *Store) List(ctx context.Context, pattern string) ([]authorization.Principal, error) {
	rows, err := s.pool.Query(ctx, `
SELECT p.id, p.username, p.password_hash, r.id, r.name
FROM principals p
LEFT JOIN principal_roles pr ON pr.principal_id = p.id
LEFT JOIN roles r ON r.id = pr.role_id
ORDER BY p.id, r.id`)
	if err != nil {
		return nil, mapError("list principals", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[principalRow])
	if err != nil {
		return nil, mapError("scan principals", err)
	}

	var result []authorization.Principal
	for _, rec := range records {
		if pattern != "" {
			matched, err := doublestar.Match(pattern, rec.Username)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, authorization.ErrInvalidArgument)
			}
			if !matched {
				continue
			}
		}
		if n := len(result); n == 0 || result[n-1].ID != rec.ID {
			result = append(result, authorization.Principal{ID: rec.ID, Username: rec.Username, PasswordHash: rec.PasswordHash})
		}
		if rec.RoleID != nil && rec.RoleName != nil {
			last := &result[len(result)-1]
			last.Roles = append(last.Roles, authorization.RoleRef{ID: *rec.RoleID, Name: *rec.RoleName})
		}
	}
	return result, nil
}

var _ authorization.PrincipalStore = (*Store)(nil)
