// Package services contains server-side business logic. This file implements
// AccountService: login, registration with e-mail confirmation, profile
// reads and updates, and account deletion.
//
// Writes that touch more than one store (rows, avatar objects, outgoing
// e-mail) run inside a txn.Transaction so a failure in a later step undoes
// the earlier ones.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/cryptox"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/logging"
	"github.com/dmitrijs2005/clientkeeper/internal/server/auth"
	"github.com/dmitrijs2005/clientkeeper/internal/server/config"
	"github.com/dmitrijs2005/clientkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/notify"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/clientkeeper/internal/server/storage"
	"github.com/dmitrijs2005/clientkeeper/internal/server/txn"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ConfirmStatus is the outcome of a successful Confirm call.
type ConfirmStatus int

const (
	ConfirmStatusConfirmed ConfirmStatus = iota
	ConfirmStatusAlreadyConfirmed
)

// Profile is a client as returned to its owner.
type Profile struct {
	Client    *models.Client
	Address   *models.Address
	AvatarURL string
}

type LoginResult struct {
	Token   string
	Profile *Profile
}

type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.Manager
	images      storage.ImageStore
	notifier    notify.Notifier
	logger      logging.Logger
	phoneRegion string

	// Used to spend the same hashing time on unknown e-mails as on known ones.
	dummySalt []byte
	dummyHash []byte
}

// NewAccountService wires the service to its collaborators.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.Manager,
	images storage.ImageStore, notifier notify.Notifier, cfg *config.Config, logger logging.Logger) *AccountService {

	if logger == nil {
		logger = logging.Nop{}
	}
	salt := cryptox.GenerateSalt()
	return &AccountService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		images:      images,
		notifier:    notifier,
		logger:      logger.With("module", "accounts"),
		phoneRegion: cfg.PhoneRegion,
		dummySalt:   salt,
		dummyHash:   cryptox.HashSecret(string(common.GenerateRandByteArray(16)), salt),
	}
}

// Login checks the credentials and issues a session token. An unknown e-mail
// and a wrong secret both yield common.ErrorUnauthorized. The confirmed flag
// is only looked at once the secret matched.
func (s *AccountService) Login(ctx context.Context, email, secret string) (*LoginResult, error) {
	client, err := s.repomanager.Clients(s.db).FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.VerifySecret(secret, s.dummySalt, s.dummyHash)
			metrics.Login("mismatch")
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !cryptox.VerifySecret(secret, client.Salt, client.PasswordHash) {
		metrics.Login("mismatch")
		return nil, common.ErrorUnauthorized
	}
	if !client.IsConfirmed {
		metrics.Login("not_confirmed")
		return nil, common.ErrorNotConfirmed
	}

	token, err := s.tokens.Issue(client.ID, client.Email)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "client_id", client.ID, "error", err)
		return nil, common.ErrorInternal
	}
	metrics.TokenIssued()
	metrics.Login("ok")

	profile, err := s.profile(ctx, client)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Profile: profile}, nil
}

// Register creates an unconfirmed client, its address and optional avatar,
// then mails a confirmation link. An unconfirmed account holding the same
// e-mail is superseded; a confirmed one is a conflict.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}
	phone, err := normalizePhone(in.Phone, s.phoneRegion)
	if err != nil {
		return nil, err
	}
	birthDate, err := parseBirthDate(in.BirthDate)
	if err != nil {
		return nil, err
	}

	clients := s.repomanager.Clients(s.db)
	addresses := s.repomanager.Addresses(s.db)
	email := normalizeEmail(in.Email)

	stale, err := clients.FindByEmail(ctx, email)
	switch {
	case err == nil && stale.IsConfirmed:
		return nil, fmt.Errorf("%w: e-mail %s", common.ErrorConflict, email)
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		stale = nil
	default:
		s.logger.Error(ctx, "register lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	salt := cryptox.GenerateSalt()
	client := &models.Client{
		Email:        email,
		PasswordHash: cryptox.HashSecret(in.Password, salt),
		Salt:         salt,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Document:     onlyDigits(in.Document),
		Phone:        phone,
		BirthDate:    birthDate,
	}
	var address *models.Address

	err = txn.Run(ctx, s.logger, func(ctx context.Context, tx *txn.Transaction) error {
		if stale != nil {
			staleID := stale.ID
			if err := tx.BeginStep(ctx, "supersede unconfirmed client",
				func(ctx context.Context) error { return clients.SoftDelete(ctx, staleID) },
				func(ctx context.Context) error { return clients.Restore(ctx, staleID) },
			); err != nil {
				return err
			}
		}

		if in.Avatar != "" {
			if err := tx.BeginStep(ctx, "upload avatar",
				func(ctx context.Context) error {
					key, err := s.images.UploadEncodedImage(ctx, in.Avatar)
					if err != nil {
						return err
					}
					client.Avatar = key
					return nil
				},
				func(ctx context.Context) error { return s.images.DeleteImage(ctx, client.Avatar) },
			); err != nil {
				return err
			}
		}

		if err := tx.BeginStep(ctx, "create client",
			func(ctx context.Context) error {
				_, err := clients.Create(ctx, client)
				return err
			},
			func(ctx context.Context) error { return clients.HardDelete(ctx, client.ID) },
		); err != nil {
			return err
		}

		if in.Address != nil {
			if err := tx.BeginStep(ctx, "create address",
				func(ctx context.Context) error {
					created, err := addresses.Create(ctx, in.Address.model(client.ID))
					address = created
					return err
				},
				func(ctx context.Context) error { return addresses.Delete(ctx, address.ID) },
			); err != nil {
				return err
			}
		}

		var token string
		if err := tx.BeginStep(ctx, "issue confirmation token",
			func(context.Context) error {
				var err error
				token, err = s.tokens.IssueConfirmation(client.ID, client.Email)
				return err
			}, nil,
		); err != nil {
			return err
		}
		metrics.TokenIssued()

		return tx.BeginStep(ctx, "send confirmation e-mail",
			func(ctx context.Context) error {
				return s.notifier.SendTemplatedMessage(ctx, client, notify.KindEmailConfirmation, token)
			}, nil,
		)
	})
	if err != nil {
		return nil, s.writeFailed(ctx, "register", err)
	}

	s.logger.Info(ctx, "client registered", "client_id", client.ID)
	return &Profile{Client: client, Address: address, AvatarURL: s.avatarURL(ctx, client)}, nil
}

// Confirm consumes a confirmation token. The token is invalidated once the
// account is marked confirmed.
func (s *AccountService) Confirm(ctx context.Context, rawToken string) (ConfirmStatus, *models.Client, error) {
	claims, err := s.tokens.ValidateToken(rawToken)
	if err != nil {
		return 0, nil, err
	}

	clients := s.repomanager.Clients(s.db)
	client, err := clients.FindByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, nil, err
		}
		s.logger.Error(ctx, "confirm lookup failed", "error", err)
		return 0, nil, common.ErrorInternal
	}

	if client.IsConfirmed {
		return ConfirmStatusAlreadyConfirmed, client, nil
	}

	if err := clients.SetConfirmed(ctx, client.ID, true); err != nil {
		s.logger.Error(ctx, "confirm update failed", "client_id", client.ID, "error", err)
		return 0, nil, common.ErrorInternal
	}
	client.IsConfirmed = true

	if _, ok := s.tokens.Invalidate(rawToken); !ok {
		s.logger.Warn(ctx, "confirmation token could not be invalidated", "client_id", client.ID)
	}

	s.logger.Info(ctx, "client confirmed", "client_id", client.ID)
	return ConfirmStatusConfirmed, client, nil
}

// Me returns the profile of the authenticated client.
func (s *AccountService) Me(ctx context.Context, clientID int64) (*Profile, error) {
	client, err := s.findClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, client)
}

// List returns a page of active clients ordered by id. limit is clamped to
// [1, MaxPageSize], DefaultPageSize when unset.
func (s *AccountService) List(ctx context.Context, limit, offset int) ([]*Profile, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repomanager.Clients(s.db).List(ctx, limit, offset)
	if err != nil {
		s.logger.Error(ctx, "list clients failed", "error", err)
		return nil, common.ErrorInternal
	}

	result := make([]*Profile, 0, len(list))
	for _, c := range list {
		p, err := s.profile(ctx, c)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// Update applies a partial change to the client's profile and address. The
// previous avatar object is removed only after everything else committed.
func (s *AccountService) Update(ctx context.Context, clientID int64, in UpdateInput) (*Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	clients := s.repomanager.Clients(s.db)
	addresses := s.repomanager.Addresses(s.db)

	existing, err := s.findClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	patch, err := s.buildPatch(ctx, existing, in)
	if err != nil {
		return nil, err
	}

	existingAddress, err := addresses.FindByClientID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "address lookup failed", "client_id", clientID, "error", err)
			return nil, common.ErrorInternal
		}
		existingAddress = nil
	}

	var updated *models.Client
	address := existingAddress

	err = txn.Run(ctx, s.logger, func(ctx context.Context, tx *txn.Transaction) error {
		if in.Avatar != nil && *in.Avatar != "" {
			var key string
			if err := tx.BeginStep(ctx, "upload avatar",
				func(ctx context.Context) error {
					var err error
					if key, err = s.images.UploadEncodedImage(ctx, *in.Avatar); err != nil {
						return err
					}
					patch.Avatar = &key
					return nil
				},
				func(ctx context.Context) error { return s.images.DeleteImage(ctx, key) },
			); err != nil {
				return err
			}
		}

		if err := tx.BeginStep(ctx, "update client",
			func(ctx context.Context) error {
				var err error
				updated, err = clients.Update(ctx, existing, patch)
				return err
			},
			func(ctx context.Context) error { return clients.Overwrite(ctx, existing) },
		); err != nil {
			return err
		}

		if in.Address != nil && !in.Address.IsEmpty() {
			if existingAddress != nil {
				if err := tx.BeginStep(ctx, "update address",
					func(ctx context.Context) error {
						var err error
						address, err = addresses.Update(ctx, existingAddress, *in.Address)
						return err
					},
					func(ctx context.Context) error { return addresses.Overwrite(ctx, existingAddress) },
				); err != nil {
					return err
				}
			} else {
				fresh := in.Address.Apply(models.Address{ClientID: clientID})
				if err := tx.BeginStep(ctx, "create address",
					func(ctx context.Context) error {
						var err error
						address, err = addresses.Create(ctx, &fresh)
						return err
					},
					func(ctx context.Context) error { return addresses.Delete(ctx, address.ID) },
				); err != nil {
					return err
				}
			}
		}

		kind := notify.KindAccountUpdate
		if patch.SecretChanged() {
			kind = notify.KindChangedPassword
		}
		return tx.BeginStep(ctx, "send update e-mail",
			func(ctx context.Context) error {
				return s.notifier.SendTemplatedMessage(ctx, updated, kind, "")
			}, nil,
		)
	})
	if err != nil {
		return nil, s.writeFailed(ctx, "update", err)
	}

	if patch.Avatar != nil && existing.Avatar != "" && existing.Avatar != *patch.Avatar {
		if err := s.images.DeleteImage(ctx, existing.Avatar); err != nil {
			s.logger.Warn(ctx, "old avatar not removed", "client_id", clientID, "error", err)
		}
	}

	s.logger.Info(ctx, "client updated", "client_id", clientID)
	return &Profile{Client: updated, Address: address, AvatarURL: s.avatarURL(ctx, updated)}, nil
}

// Delete soft-deletes the client and its address in one SQL transaction and
// mails a farewell. A failed e-mail restores the account.
func (s *AccountService) Delete(ctx context.Context, clientID int64) error {
	client, err := s.findClient(ctx, clientID)
	if err != nil {
		return err
	}

	err = txn.Run(ctx, s.logger, func(ctx context.Context, tx *txn.Transaction) error {
		if err := tx.BeginStep(ctx, "soft delete client",
			func(ctx context.Context) error {
				return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, q dbx.DBTX) error {
					if err := s.repomanager.Clients(q).SoftDelete(ctx, clientID); err != nil {
						return err
					}
					return s.repomanager.Addresses(q).SoftDeleteByClientID(ctx, clientID)
				})
			},
			func(ctx context.Context) error {
				return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, q dbx.DBTX) error {
					if err := s.repomanager.Clients(q).Restore(ctx, clientID); err != nil {
						return err
					}
					return s.repomanager.Addresses(q).RestoreByClientID(ctx, clientID)
				})
			},
		); err != nil {
			return err
		}

		return tx.BeginStep(ctx, "send deletion e-mail",
			func(ctx context.Context) error {
				return s.notifier.SendTemplatedMessage(ctx, client, notify.KindAccountDeletion, "")
			}, nil,
		)
	})
	if err != nil {
		return s.writeFailed(ctx, "delete", err)
	}

	s.logger.Info(ctx, "client deleted", "client_id", clientID)
	return nil
}

// --- helpers below ---

func (s *AccountService) findClient(ctx context.Context, clientID int64) (*models.Client, error) {
	client, err := s.repomanager.Clients(s.db).FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		s.logger.Error(ctx, "client lookup failed", "client_id", clientID, "error", err)
		return nil, common.ErrorInternal
	}
	return client, nil
}

func (s *AccountService) buildPatch(ctx context.Context, existing *models.Client, in UpdateInput) (models.ClientPatch, error) {
	var patch models.ClientPatch

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != normalizeEmail(existing.Email) {
			other, err := s.repomanager.Clients(s.db).FindByEmail(ctx, email)
			switch {
			case err == nil && other.ID != existing.ID:
				return patch, fmt.Errorf("%w: e-mail %s", common.ErrorConflict, email)
			case err == nil, errors.Is(err, common.ErrorNotFound):
			default:
				s.logger.Error(ctx, "update lookup failed", "error", err)
				return patch, common.ErrorInternal
			}
		}
		patch.Email = &email
	}
	if in.Password != nil {
		// the salt is fixed at creation
		patch.PasswordHash = cryptox.HashSecret(*in.Password, existing.Salt)
	}
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		patch.FirstName = &v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		patch.LastName = &v
	}
	if in.Document != nil {
		v := onlyDigits(*in.Document)
		patch.Document = &v
	}
	if in.Phone != nil {
		v, err := normalizePhone(*in.Phone, s.phoneRegion)
		if err != nil {
			return patch, err
		}
		patch.Phone = &v
	}
	if in.BirthDate != nil && *in.BirthDate != "" {
		bd, err := parseBirthDate(*in.BirthDate)
		if err != nil {
			return patch, err
		}
		patch.BirthDate = bd
	}
	if in.Avatar != nil && *in.Avatar == "" {
		empty := ""
		patch.Avatar = &empty
	}
	return patch, nil
}

func (s *AccountService) profile(ctx context.Context, client *models.Client) (*Profile, error) {
	address, err := s.repomanager.Addresses(s.db).FindByClientID(ctx, client.ID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "address lookup failed", "client_id", client.ID, "error", err)
			return nil, common.ErrorInternal
		}
		address = nil
	}
	return &Profile{Client: client, Address: address, AvatarURL: s.avatarURL(ctx, client)}, nil
}

func (s *AccountService) avatarURL(ctx context.Context, client *models.Client) string {
	if client.Avatar == "" {
		return ""
	}
	url, err := s.images.URL(ctx, client.Avatar)
	if err != nil {
		s.logger.Warn(ctx, "avatar url failed", "client_id", client.ID, "error", err)
		return ""
	}
	return url
}

// writeFailed logs a rolled-back write and decides what the caller sees.
// Validation, conflict and not-found causes pass through unchanged. Anything
// else is reported as ErrorTransaction with the failed step and its cause, and
// a partial rollback also lists the compensations that failed.
func (s *AccountService) writeFailed(ctx context.Context, op string, err error) error {
	partial := errors.Is(err, txn.ErrPartialRollback)
	metrics.Rollback(op, partial)
	if partial {
		s.logger.Error(ctx, "rollback left data inconsistent", "operation", op, "error", err)
	} else {
		s.logger.Warn(ctx, "write rolled back", "operation", op, "error", err)
	}

	var stepErr *txn.StepError
	errors.As(err, &stepErr)

	switch {
	case partial:
		var prErr *txn.PartialRollbackError
		if stepErr == nil || !errors.As(err, &prErr) {
			return fmt.Errorf("%w: %s: %w", common.ErrorTransaction, op, err)
		}
		return fmt.Errorf("%w: %s: %w; %w", common.ErrorTransaction, op, stepErr, prErr)
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrorConflict),
		errors.Is(err, common.ErrorNotFound):
		if stepErr != nil {
			return stepErr.Err
		}
		return err
	default:
		return fmt.Errorf("%w: %s: %w", common.ErrorTransaction, op, err)
	}
}
