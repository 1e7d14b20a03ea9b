package storeadapter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larkmail/keepd/internal/directory"
	"github.com/larkmail/keepd/internal/housekeeper"
)

// PostgresAccountService implements housekeeper.AccountService: it purges
// individual or all-expired accounts and reports the directory-wide
// counts CalculateMetrics pushes into the UserCount/DomainCount gauges.
// Individual accounts are of directory.Type Individual; domains are
// principals of directory.Type Domain.
type PostgresAccountService struct {
	Pool      *pgxpool.Pool
	Principal *PrincipalRepo
}

var _ housekeeper.AccountService = (*PostgresAccountService)(nil)

// NewPostgresAccountService constructs a PostgresAccountService over pool.
func NewPostgresAccountService(pool *pgxpool.Pool) *PostgresAccountService {
	return &PostgresAccountService{Pool: pool, Principal: NewPrincipalRepo(pool)}
}

// PurgeAccount purges one account by id: it is re-fetched from any
// external directory the server fronts (here, left to the account's own
// stored state since this module has no external directory collaborator
// of its own) and its removal is reflected in the search index via
// directory.BuildSearchIndex, then the row itself is deleted.
func (s *PostgresAccountService) PurgeAccount(ctx context.Context, id uint32) error {
	existing, err := s.Principal.Get(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil
		}
		return fmt.Errorf("purging account %d: %w", id, err)
	}

	batch := directory.BuildSearchIndex(existing, nil)
	if batch.Len() > 0 {
		br := s.Pool.SendBatch(ctx, batch.Underlying())
		defer br.Close()
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("clearing search index for account %d: %w", id, err)
			}
		}
	}

	if _, err := s.Pool.Exec(ctx, `DELETE FROM principals WHERE id = $1`, id); err != nil {
		return fmt.Errorf("purging account %d: %w", id, err)
	}
	return nil
}

// PurgeAccounts sweeps every account whose expires_at has passed, purging
// each the same way PurgeAccount does: clear its search-index entries,
// then delete the row.
func (s *PostgresAccountService) PurgeAccounts(ctx context.Context) error {
	rows, err := s.Pool.Query(ctx, `SELECT id FROM principals
		WHERE type = $1 AND expires_at IS NOT NULL AND expires_at <= now()`,
		directory.Individual.ToU8())
	if err != nil {
		return fmt.Errorf("listing expired accounts: %w", err)
	}
	var ids []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning expired account id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating expired accounts: %w", err)
	}

	for _, id := range ids {
		if err := s.PurgeAccount(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// TotalAccounts reports the number of Individual-type principals, used by
// CalculateMetrics for the UserCount gauge.
func (s *PostgresAccountService) TotalAccounts(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM principals WHERE type = $1`,
		directory.Individual.ToU8()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	return n, nil
}

// TotalDomains reports the number of Domain-type principals, used by
// CalculateMetrics for the DomainCount gauge.
func (s *PostgresAccountService) TotalDomains(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM principals WHERE type = $1`,
		directory.Domain.ToU8()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting domains: %w", err)
	}
	return n, nil
}
