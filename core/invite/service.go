package invite

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
)

var (
	// errors
	ErrNotFound = errors.New("invitation not found")
	ErrInvalid  = errors.New("invitation is no longer valid")
	ErrExpired  = errors.New("invitation has expired")
)

type (
	Repository interface {
		CreateInvitation(ctx context.Context, inv Invitation) (Invitation, error)
		GetInvitationByToken(ctx context.Context, token string) (Invitation, error)
		UpdateInvitationStatus(ctx context.Context, id, status string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	secretKey = []byte(conf.SecretKey)
	invitationTimeout = conf.Auth.InvitationTimeout
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

// Create stores a pending invitation and emails the invite link.
func (svc *Service) Create(ctx context.Context, ni NewInvitation) (Invitation, error) {
	inv := Invitation{
		ID:        uuid.NewString(),
		Name:      ni.Name,
		Email:     ni.Email,
		Role:      ni.Role,
		SchoolID:  ni.SchoolID,
		Message:   ni.Message,
		Status:    StatusPending,
		ExpiresAt: nowFunc().UTC().Add(invitationTimeout),
		CreatedAt: nowFunc().UTC(),
	}
	inv.Token = makeToken(inv)

	inv, err := svc.repo.CreateInvitation(ctx, inv)
	if err != nil {
		return Invitation{}, errors.Wrap(err, "creating invitation")
	}

	svc.sendInvitationMail(inv)
	return inv, nil
}

// Validate looks an invitation up by token and checks signature, status
// and expiry.
func (svc *Service) Validate(ctx context.Context, token string) (Invitation, error) {
	inv, err := svc.repo.GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Invitation{}, ErrNotFound
		}
		return Invitation{}, errors.Wrap(err, "finding invitation by token")
	}

	if err := verifyToken(inv, token); err != nil {
		if err == errTokenExpired {
			return Invitation{}, ErrExpired
		}
		return Invitation{}, ErrNotFound
	}
	if inv.Status != StatusPending {
		return Invitation{}, ErrInvalid
	}
	if nowFunc().After(inv.ExpiresAt) {
		return Invitation{}, ErrExpired
	}
	return inv, nil
}

// Accept marks a validated invitation as used.
func (svc *Service) Accept(ctx context.Context, inv Invitation) error {
	return svc.repo.UpdateInvitationStatus(ctx, inv.ID, StatusAccepted)
}

func (svc *Service) sendInvitationMail(inv Invitation) {
	link := fmt.Sprintf("%s/register?token=%s", svc.conf.FrontendBaseURL, inv.Token)
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYou have been invited to join %s as a %s.\r\n\r\n%s\r\n"+
			"Follow this link to complete your registration:\r\n%s\r\n\r\n"+
			"This invitation expires on %s.\r\n",
		inv.Name, svc.conf.AppName, inv.Role, inv.Message, link,
		inv.ExpiresAt.Format(time.RFC1123),
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: inv.Name, Address: inv.Email}},
		Subject: "You have been invited",
		BodyStr: body,
	})
}
