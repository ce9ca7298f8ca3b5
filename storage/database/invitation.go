package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core/invite"
)

type invitationRepository struct {
	db *sqlx.DB
}

var _ invite.Repository = (*invitationRepository)(nil)

func NewInvitationRepository(db *sqlx.DB) *invitationRepository {
	return &invitationRepository{db: db}
}

func (repo *invitationRepository) CreateInvitation(ctx context.Context, inv invite.Invitation) (invite.Invitation, error) {
	query := `
		INSERT INTO invitations (id, name, email, role, school_id, message, status, token, expires_at, created_at)
		VALUES (:id, :name, :email, :role, :school_id, :message, :status, :token, :expires_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, query, inv); err != nil {
		return invite.Invitation{}, errors.Wrap(err, "inserting invitation")
	}
	return inv, nil
}

func (repo *invitationRepository) GetInvitationByToken(ctx context.Context, token string) (invite.Invitation, error) {
	var inv invite.Invitation
	err := repo.db.GetContext(ctx, &inv, `SELECT * FROM invitations WHERE token = $1`, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return invite.Invitation{}, invite.ErrNotFound
		}
		return invite.Invitation{}, errors.Wrap(err, "finding invitation by token")
	}
	return inv, nil
}

func (repo *invitationRepository) UpdateInvitationStatus(ctx context.Context, id, status string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE invitations SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	return errors.Wrap(err, "updating invitation status")
}
