package storeadapter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larkmail/keepd/internal/directory"
)

const principalColumns = `id, type, name, description, secrets, emails, quota, tenant,
	member_of, roles, urls, lists, picture`

// PrincipalRepo reads and writes Principal records, keeping the full-text
// search index (directory.BuildSearchIndex) consistent with every write.
type PrincipalRepo struct {
	Pool *pgxpool.Pool
}

// NewPrincipalRepo constructs a PrincipalRepo over pool.
func NewPrincipalRepo(pool *pgxpool.Pool) *PrincipalRepo {
	return &PrincipalRepo{Pool: pool}
}

func scanPrincipal(row pgx.Row) (*directory.Principal, error) {
	var p directory.Principal
	var typ uint8
	if err := row.Scan(
		&p.ID, &typ, &p.Name, &p.Description, &p.Secrets, &p.Emails, &p.Quota, &p.Tenant,
		&p.MemberOf, &p.Roles, &p.Urls, &p.Lists, &p.Picture,
	); err != nil {
		return nil, err
	}
	p.Type = directory.TypeFromU8(typ)
	return &p, nil
}

// Get fetches one principal by id. It returns (nil, pgx.ErrNoRows) when the
// principal does not exist.
func (r *PrincipalRepo) Get(ctx context.Context, id uint32) (*directory.Principal, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	p, err := scanPrincipal(row)
	if err != nil {
		return nil, fmt.Errorf("fetching principal %d: %w", id, err)
	}
	return p, nil
}

// Save upserts a principal and brings the full-text search index up to
// date with the diff between the previously-stored value (if any) and p,
// per directory.BuildSearchIndex (§4.I / §4.J of the expanded spec).
func (r *PrincipalRepo) Save(ctx context.Context, p *directory.Principal) error {
	previous := r.getOrNil(ctx, p.ID)

	_, err := r.Pool.Exec(ctx, `
		INSERT INTO principals (id, type, name, description, secrets, emails, quota, tenant,
			member_of, roles, urls, lists, picture)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type, name = EXCLUDED.name, description = EXCLUDED.description,
			secrets = EXCLUDED.secrets, emails = EXCLUDED.emails, quota = EXCLUDED.quota,
			tenant = EXCLUDED.tenant, member_of = EXCLUDED.member_of, roles = EXCLUDED.roles,
			urls = EXCLUDED.urls, lists = EXCLUDED.lists, picture = EXCLUDED.picture`,
		p.ID, p.Type.ToU8(), p.Name, p.Description, p.Secrets, p.Emails, p.Quota, p.Tenant,
		p.MemberOf, p.Roles, p.Urls, p.Lists, p.Picture,
	)
	if err != nil {
		return fmt.Errorf("saving principal %d: %w", p.ID, err)
	}

	batch := directory.BuildSearchIndex(previous, p)
	if batch.Len() > 0 {
		br := r.Pool.SendBatch(ctx, batch.Underlying())
		defer br.Close()
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("updating search index for principal %d: %w", p.ID, err)
			}
		}
	}

	return nil
}

// getOrNil fetches a principal, treating "not found" as a nil result
// rather than an error — used by Save to compute the pre-write search
// index state for brand-new principals.
func (r *PrincipalRepo) getOrNil(ctx context.Context, id uint32) *directory.Principal {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil
	}
	return p
}
