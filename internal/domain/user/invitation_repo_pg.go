package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsched/medsched/internal/platform/db"
)

type invitationRepoPG struct{ pool *pgxpool.Pool }

func NewInvitationRepoPG(pool *pgxpool.Pool) InvitationRepository {
	return &invitationRepoPG{pool: pool}
}

func (r *invitationRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const invitationCols = `id, email, token, used, expires_at, created_by, created_at`

func (r *invitationRepoPG) scan(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.Email, &inv.Token, &inv.Used,
		&inv.ExpiresAt, &inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepoPG) Create(ctx context.Context, inv *Invitation) error {
	inv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_invitation (id, email, token, used, expires_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		inv.ID, inv.Email, inv.Token, inv.Used, inv.ExpiresAt, inv.CreatedBy)
	return err
}

func (r *invitationRepoPG) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invitationCols+` FROM doctor_invitation WHERE token = $1`, token))
}

func (r *invitationRepoPG) GetRedeemableByEmail(ctx context.Context, email string, now time.Time) (*Invitation, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+invitationCols+` FROM doctor_invitation
		WHERE LOWER(email) = LOWER($1) AND NOT used AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1`, email, now))
}

func (r *invitationRepoPG) MarkUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor_invitation SET used = TRUE WHERE id = $1`, id)
	return err
}
