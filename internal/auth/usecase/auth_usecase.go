package usecase

import (
	"context"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	authService "github.com/allisson/vaultfs/internal/auth/service"
	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	cryptoService "github.com/allisson/vaultfs/internal/crypto/service"
	cryptoUseCase "github.com/allisson/vaultfs/internal/crypto/usecase"
	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	userDomain "github.com/allisson/vaultfs/internal/user/domain"
	appValidation "github.com/allisson/vaultfs/internal/validation"
)

// UserRepository defines the user persistence operations the auth flows need.
type UserRepository interface {
	Create(ctx context.Context, user *userDomain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
	GetByHandle(ctx context.Context, handle string) (*userDomain.User, error)
	UpdatePassword(ctx context.Context, user *userDomain.User) error
}

// authUseCase implements AuthUseCase.
//
// Registration mints the user's DEK wrapped under their password; login
// derives the PDK, proves it by unwrapping the DEK (an AEAD tag failure is
// indistinguishable from a wrong password) and pins the PDK in the session.
type authUseCase struct {
	txManager       database.TxManager
	userRepo        UserRepository
	passwordService authService.PasswordService
	tokenService    authService.TokenService
	sessionStore    authService.SessionStore
	keyManager      cryptoService.KeyManager
	keyDeriver      cryptoService.KeyDeriver
	kekUseCase      cryptoUseCase.KekUseCase
	quotas          userDomain.PlanQuotas
	sessionTTL      time.Duration
}

// NewAuthUseCase creates a new AuthUseCase.
func NewAuthUseCase(
	txManager database.TxManager,
	userRepo UserRepository,
	passwordService authService.PasswordService,
	tokenService authService.TokenService,
	sessionStore authService.SessionStore,
	keyManager cryptoService.KeyManager,
	keyDeriver cryptoService.KeyDeriver,
	kekUseCase cryptoUseCase.KekUseCase,
	quotas userDomain.PlanQuotas,
	sessionTTL time.Duration,
) AuthUseCase {
	return &authUseCase{
		txManager:       txManager,
		userRepo:        userRepo,
		passwordService: passwordService,
		tokenService:    tokenService,
		sessionStore:    sessionStore,
		keyManager:      keyManager,
		keyDeriver:      keyDeriver,
		kekUseCase:      kekUseCase,
		quotas:          quotas,
		sessionTTL:      sessionTTL,
	}
}

// validateRegisterInput validates registration input.
func (uc *authUseCase) validateRegisterInput(input RegisterInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Handle,
			validation.Required.Error("handle is required"),
			appValidation.NotBlank,
			appValidation.Handle,
			validation.Length(3, 64).Error("handle must be between 3 and 64 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{
				MinLength:     8,
				RequireLower:  true,
				RequireNumber: true,
			},
		),
	)
	return appValidation.WrapValidationError(err)
}

// Register creates a new user with a freshly minted wrapped DEK.
func (uc *authUseCase) Register(ctx context.Context, input RegisterInput) (uuid.UUID, error) {
	if err := uc.validateRegisterInput(input); err != nil {
		return uuid.Nil, err
	}

	hashedPassword, err := uc.passwordService.HashPassword(input.Password)
	if err != nil {
		return uuid.Nil, err
	}

	wrapped, err := uc.keyManager.CreateUserDek(input.Password)
	if err != nil {
		return uuid.Nil, err
	}

	kekVersion, _, err := uc.kekUseCase.ActiveKek(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	user := &userDomain.User{
		ID:            uuid.Must(uuid.NewV7()),
		Name:          strings.TrimSpace(input.Name),
		Handle:        strings.TrimSpace(strings.ToLower(input.Handle)),
		Password:      hashedPassword,
		Roles:         []string{"user"},
		EncryptedDek:  wrapped.EncryptedKey,
		DekNonce:      wrapped.Nonce,
		DekSalt:       wrapped.Salt,
		DekKekVersion: kekVersion,
		QuotaBytes:    uc.quotas.Quota(userDomain.PlanFree),
		Plan:          userDomain.PlanFree,
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		return uc.userRepo.Create(ctx, user)
	})
	if err != nil {
		return uuid.Nil, err
	}

	return user.ID, nil
}

// Login verifies credentials, proves the PDK by unwrapping the DEK and mints
// a session bound to a fresh CSRF token.
func (uc *authUseCase) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	handle := strings.TrimSpace(strings.ToLower(input.Handle))

	user, err := uc.userRepo.GetByHandle(ctx, handle)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, authDomain.ErrBadCredentials
		}
		return nil, err
	}

	if !uc.passwordService.ComparePassword(input.Password, user.Password) {
		return nil, authDomain.ErrBadCredentials
	}

	// Derive the PDK and prove it against the wrapped DEK. A tag failure here
	// means the verifier and the wrap disagree; report it exactly like a
	// wrong password.
	pdk := uc.keyDeriver.DeriveKey(input.Password, user.DekSalt)
	dek, err := uc.keyManager.UnwrapUserDekWithPDK(cryptoService.UserDek{
		EncryptedKey: user.EncryptedDek,
		Nonce:        user.DekNonce,
		Salt:         user.DekSalt,
	}, pdk)
	if err != nil {
		cryptoDomain.Zero(pdk)
		return nil, authDomain.ErrBadCredentials
	}
	cryptoDomain.Zero(dek)

	sessionToken, err := uc.tokenService.GenerateToken()
	if err != nil {
		cryptoDomain.Zero(pdk)
		return nil, err
	}
	csrfToken, err := uc.tokenService.GenerateToken()
	if err != nil {
		cryptoDomain.Zero(pdk)
		return nil, err
	}

	now := time.Now().UTC()
	session := &authDomain.Session{
		Token:     sessionToken,
		UserID:    user.ID,
		PDK:       pdk,
		CSRFToken: csrfToken,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.sessionTTL),
	}
	uc.sessionStore.Put(session)

	return &LoginResult{Session: session}, nil
}

// Logout destroys the session.
func (uc *authUseCase) Logout(ctx context.Context, token string) {
	uc.sessionStore.Delete(token)
}

// validateChangePasswordInput validates password change input.
func (uc *authUseCase) validateChangePasswordInput(input ChangePasswordInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.OldPassword,
			validation.Required.Error("old_password is required"),
		),
		validation.Field(&input.NewPassword,
			validation.Required.Error("new_password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{
				MinLength:     8,
				RequireLower:  true,
				RequireNumber: true,
			},
		),
	)
	return appValidation.WrapValidationError(err)
}

// ChangePassword rewraps the DEK under a PDK derived from the new password.
// The DEK value is unchanged, so every stored file remains decryptable. All
// other sessions of the user are destroyed; the calling session survives with
// its PDK refreshed in place.
func (uc *authUseCase) ChangePassword(
	ctx context.Context,
	token string,
	input ChangePasswordInput,
) error {
	if err := uc.validateChangePasswordInput(input); err != nil {
		return err
	}

	session, ok := uc.sessionStore.Get(token)
	if !ok {
		return authDomain.ErrSessionNotFound
	}

	user, err := uc.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return err
	}

	if !uc.passwordService.ComparePassword(input.OldPassword, user.Password) {
		return authDomain.ErrBadCredentials
	}

	dek, err := uc.keyManager.UnwrapUserDek(cryptoService.UserDek{
		EncryptedKey: user.EncryptedDek,
		Nonce:        user.DekNonce,
		Salt:         user.DekSalt,
	}, input.OldPassword)
	if err != nil {
		return authDomain.ErrBadCredentials
	}
	defer cryptoDomain.Zero(dek)

	rewrapped, err := uc.keyManager.RewrapUserDek(dek, input.NewPassword)
	if err != nil {
		return err
	}

	hashedPassword, err := uc.passwordService.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}

	kekVersion, _, err := uc.kekUseCase.ActiveKek(ctx)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	user.EncryptedDek = rewrapped.EncryptedKey
	user.DekNonce = rewrapped.Nonce
	user.DekSalt = rewrapped.Salt
	user.DekKekVersion = kekVersion

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		return uc.userRepo.UpdatePassword(ctx, user)
	})
	if err != nil {
		return err
	}

	// Refresh the calling session's PDK and revoke every other session.
	newPDK := uc.keyDeriver.DeriveKey(input.NewPassword, rewrapped.Salt)
	if !uc.sessionStore.ReplacePDK(token, newPDK) {
		cryptoDomain.Zero(newPDK)
	}
	uc.sessionStore.DeleteAllForUser(user.ID, token)

	return nil
}

// SessionTTL exposes the configured session lifetime.
func (uc *authUseCase) SessionTTL() time.Duration {
	return uc.sessionTTL
}
