package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// CreditLedgerPG implements domain.CreditLedger. The ledger itself is
// owned by the points subsystem; only the debit/refund operations the
// dispatcher invokes are implemented here.
type CreditLedgerPG struct {
	pool *pgxpool.Pool
}

func NewCreditLedger(pool *pgxpool.Pool) *CreditLedgerPG {
	return &CreditLedgerPG{pool: pool}
}

// Debit withdraws amount points, failing without a write when the
// balance is short.
func (r *CreditLedgerPG) Debit(ctx context.Context, ownerID string, amount int) error {
	query := `
UPDATE credit_balances
SET balance = balance - $2, updated_at = NOW()
WHERE owner_id = $1 AND balance >= $2;
`
	tag, err := r.pool.Exec(ctx, query, ownerID, amount)
	if err != nil {
		return fmt.Errorf("ledger: debit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientCredits
	}
	return nil
}

// Refund credits amount points back after a failed dispatch.
func (r *CreditLedgerPG) Refund(ctx context.Context, ownerID string, amount int) error {
	query := `
UPDATE credit_balances
SET balance = balance + $2, updated_at = NOW()
WHERE owner_id = $1;
`
	if _, err := r.pool.Exec(ctx, query, ownerID, amount); err != nil {
		return fmt.Errorf("ledger: refund: %w", err)
	}
	return nil
}

var _ domain.CreditLedger = (*CreditLedgerPG)(nil)
