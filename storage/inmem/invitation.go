package inmemdb

import (
	"context"

	"github.com/shulelabs/shule/core/invite"
)

type invitationRepository struct {
	db *invitationTable
}

func NewInvitationRepository(db *DB) invite.Repository {
	return &invitationRepository{db: db.invitation}
}

func (repo *invitationRepository) CreateInvitation(_ context.Context, inv invite.Invitation) (invite.Invitation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[inv.ID] = &inv
	return inv, nil
}

func (repo *invitationRepository) GetInvitationByToken(_ context.Context, token string) (invite.Invitation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inv := range repo.db.table {
		if inv.Token == token {
			return *inv, nil
		}
	}
	return invite.Invitation{}, invite.ErrNotFound
}

func (repo *invitationRepository) UpdateInvitationStatus(_ context.Context, id, status string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	inv, ok := repo.db.table[id]
	if !ok {
		return invite.ErrNotFound
	}
	inv.Status = status
	return nil
}
