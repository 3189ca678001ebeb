package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deppfellow/candychain/internal/ca"
	"github.com/deppfellow/candychain/internal/wallet"
)

// Enroller is the Fabric CA surface the admin flow needs.
type Enroller interface {
	Enroll(ctx context.Context, enrollmentID, secret string) (*ca.Enrollment, error)
	Register(ctx context.Context, reg ca.RegistrationRequest, registrar *ca.Enrollment) (string, error)
}

// AdminSettings names the registrar and where new users are placed.
type AdminSettings struct {
	AdminID     string
	AdminSecret string
	Affiliation string
	MSPID       string
}

// AdminService enrolls the CA registrar and registers application users,
// keeping their identities in the wallet.
type AdminService struct {
	ca       Enroller
	wallet   wallet.Store
	settings AdminSettings
}

func NewAdminService(enroller Enroller, store wallet.Store, settings AdminSettings) *AdminService {
	return &AdminService{
		ca:       enroller,
		wallet:   store,
		settings: settings,
	}
}

// EnrollAdmin enrolls the registrar with its bootstrap secret, unless the
// wallet already holds it.
func (s *AdminService) EnrollAdmin(ctx context.Context) Result {
	label := s.settings.AdminID
	logger := zerolog.Ctx(ctx).With().Str("identity", label).Logger()

	exists, err := s.wallet.Exists(ctx, label)
	if err != nil {
		return Fail(fmt.Errorf("Failed to enroll admin user %q: %w", label, err))
	}
	if exists {
		return okMessage(fmt.Sprintf("An identity for the admin user %q already exists in the wallet", label))
	}

	enrollment, err := s.ca.Enroll(ctx, label, s.settings.AdminSecret)
	if err != nil {
		logger.Error().Err(err).Msg("failed to enroll admin")
		return Fail(fmt.Errorf("Failed to enroll admin user %q: %w", label, err))
	}

	if err := s.store(ctx, label, enrollment); err != nil {
		if errors.Is(err, wallet.ErrExists) {
			return okMessage(fmt.Sprintf("An identity for the admin user %q already exists in the wallet", label))
		}
		return Fail(fmt.Errorf("Failed to enroll admin user %q: %w", label, err))
	}

	logger.Info().Msg("admin enrolled")
	return okMessage(fmt.Sprintf("Successfully enrolled admin user %q and imported it into the wallet", label))
}

// EnrollAndRegisterUser registers id with the CA as a client, enrolls it
// with the issued secret and imports the identity into the wallet.
func (s *AdminService) EnrollAndRegisterUser(ctx context.Context, id string) Result {
	logger := zerolog.Ctx(ctx).With().Str("identity", id).Logger()

	if err := wallet.ValidateLabel(id); err != nil {
		return Fail(fmt.Errorf("Failed to register user %q: %w", id, err))
	}

	exists, err := s.wallet.Exists(ctx, id)
	if err != nil {
		return Fail(fmt.Errorf("Failed to register user %q: %w", id, err))
	}
	if exists {
		return okMessage(fmt.Sprintf("An identity for the user %q already exists in the wallet", id))
	}

	admin, err := s.wallet.Get(ctx, s.settings.AdminID)
	if errors.Is(err, wallet.ErrNotFound) {
		return Fail(fmt.Errorf("An identity for the admin user %q does not exist in the wallet. Run enrollAdmin before retrying", s.settings.AdminID))
	}
	if err != nil {
		return Fail(fmt.Errorf("Failed to register user %q: %w", id, err))
	}

	secret, err := s.ca.Register(ctx, ca.RegistrationRequest{
		Name:        id,
		Type:        "client",
		Affiliation: s.settings.Affiliation,
	}, &ca.Enrollment{
		Certificate: admin.Credentials.Certificate,
		PrivateKey:  admin.Credentials.PrivateKey,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to register user")
		return Fail(fmt.Errorf("Failed to register user %q: %w", id, err))
	}

	enrollment, err := s.ca.Enroll(ctx, id, secret)
	if err != nil {
		logger.Error().Err(err).Msg("failed to enroll user")
		return Fail(fmt.Errorf("Failed to enroll user %q: %w", id, err))
	}

	if err := s.store(ctx, id, enrollment); err != nil {
		if errors.Is(err, wallet.ErrExists) {
			return okMessage(fmt.Sprintf("An identity for the user %q already exists in the wallet", id))
		}
		return Fail(fmt.Errorf("Failed to register user %q: %w", id, err))
	}

	logger.Info().Msg("user registered and enrolled")
	return okMessage(fmt.Sprintf("Successfully registered and enrolled user %q and imported it into the wallet", id))
}

// Identities is the body of the identity listing.
type Identities struct {
	Identities []string `json:"identities"`
}

// ListIdentities reports the labels held in the wallet.
func (s *AdminService) ListIdentities(ctx context.Context) Result {
	labels, err := s.wallet.List(ctx)
	if err != nil {
		return Fail(fmt.Errorf("Failed to list wallet identities: %w", err))
	}
	if labels == nil {
		labels = []string{}
	}

	data, err := json.Marshal(Identities{Identities: labels})
	if err != nil {
		return Fail(err)
	}
	return Ok(data)
}

// RemoveIdentity deletes id from the wallet. The wallet never overwrites,
// so this is how a user or the registrar gets enrolled again.
func (s *AdminService) RemoveIdentity(ctx context.Context, id string) Result {
	if err := wallet.ValidateLabel(id); err != nil {
		return Fail(fmt.Errorf("Failed to remove identity %q: %w", id, err))
	}

	err := s.wallet.Remove(ctx, id)
	if errors.Is(err, wallet.ErrNotFound) {
		return Fail(fmt.Errorf("An identity for the user %q does not exist in the wallet", id))
	}
	if err != nil {
		return Fail(fmt.Errorf("Failed to remove identity %q: %w", id, err))
	}

	zerolog.Ctx(ctx).Info().Str("identity", id).Msg("identity removed from wallet")
	return okMessage(fmt.Sprintf("Removed the identity for the user %q from the wallet", id))
}

func (s *AdminService) store(ctx context.Context, label string, enrollment *ca.Enrollment) error {
	return s.wallet.Put(ctx, label, wallet.NewX509Identity(s.settings.MSPID, enrollment.Certificate, enrollment.PrivateKey))
}
