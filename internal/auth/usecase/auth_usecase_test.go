package usecase

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	authService "github.com/allisson/vaultfs/internal/auth/service"
	cryptoService "github.com/allisson/vaultfs/internal/crypto/service"
	userDomain "github.com/allisson/vaultfs/internal/user/domain"
)

// passthroughTxManager runs the function without a real transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeUserRepo keeps users in memory keyed by handle.
type fakeUserRepo struct {
	byHandle map[string]*userDomain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byHandle: make(map[string]*userDomain.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *userDomain.User) error {
	if _, ok := f.byHandle[user.Handle]; ok {
		return userDomain.ErrDuplicateHandle
	}
	copied := *user
	f.byHandle[user.Handle] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	for _, user := range f.byHandle {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, userDomain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByHandle(ctx context.Context, handle string) (*userDomain.User, error) {
	user, ok := f.byHandle[handle]
	if !ok {
		return nil, userDomain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, user *userDomain.User) error {
	stored, ok := f.byHandle[user.Handle]
	if !ok {
		return userDomain.ErrUserNotFound
	}
	stored.Password = user.Password
	stored.EncryptedDek = user.EncryptedDek
	stored.DekNonce = user.DekNonce
	stored.DekSalt = user.DekSalt
	stored.DekKekVersion = user.DekKekVersion
	return nil
}

// fakeKekUseCase serves one static KEK.
type fakeKekUseCase struct {
	version int
	key     []byte
}

func (f *fakeKekUseCase) EnsureActive(ctx context.Context) error { return nil }
func (f *fakeKekUseCase) Rotate(ctx context.Context) error       { return nil }

func (f *fakeKekUseCase) ActiveKek(ctx context.Context) (int, []byte, error) {
	return f.version, f.key, nil
}

func (f *fakeKekUseCase) KekByVersion(ctx context.Context, version int) ([]byte, error) {
	return f.key, nil
}

type authFixture struct {
	repo         *fakeUserRepo
	sessionStore authService.SessionStore
	keyManager   cryptoService.KeyManager
	uc           AuthUseCase
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	kekKey := make([]byte, 32)
	_, err := rand.Read(kekKey)
	require.NoError(t, err)

	repo := newFakeUserRepo()
	sessionStore := authService.NewSessionStore()
	keyManager := cryptoService.NewKeyManager(cryptoService.NewAEADManager(), cryptoService.NewArgon2Deriver())

	uc := NewAuthUseCase(
		passthroughTxManager{},
		repo,
		authService.NewPasswordService(),
		authService.NewTokenService(),
		sessionStore,
		keyManager,
		cryptoService.NewArgon2Deriver(),
		&fakeKekUseCase{version: 1, key: kekKey},
		userDomain.DefaultPlanQuotas(),
		time.Hour,
	)

	return &authFixture{
		repo:         repo,
		sessionStore: sessionStore,
		keyManager:   keyManager,
		uc:           uc,
	}
}

func TestAuthUseCase_Register(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)

	userID, err := fx.uc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Handle:   "alice",
		Password: "passw0rd!X",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, userID)

	t.Run("stored user carries the wrapped dek", func(t *testing.T) {
		user, err := fx.repo.GetByHandle(ctx, "alice")
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(user.EncryptedDek), 32)
		assert.GreaterOrEqual(t, len(user.DekSalt), 16)
		assert.Len(t, user.DekNonce, 12)
		assert.Equal(t, 1, user.DekKekVersion)
		assert.Equal(t, userDomain.PlanFree, user.Plan)
		assert.Equal(t, int64(1<<30), user.QuotaBytes)
		assert.NotEqual(t, "passw0rd!X", user.Password)
	})

	t.Run("duplicate handle is rejected", func(t *testing.T) {
		_, err := fx.uc.Register(ctx, RegisterInput{
			Name:     "Other Alice",
			Handle:   "ALICE", // handles are case-folded
			Password: "passw0rd!Y",
		})
		assert.ErrorIs(t, err, userDomain.ErrDuplicateHandle)
	})

	t.Run("weak password is rejected", func(t *testing.T) {
		_, err := fx.uc.Register(ctx, RegisterInput{
			Name:     "Bob",
			Handle:   "bob",
			Password: "short",
		})
		assert.Error(t, err)
	})
}

func TestAuthUseCase_Login(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)

	_, err := fx.uc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Handle:   "alice",
		Password: "passw0rd!X",
	})
	require.NoError(t, err)

	t.Run("success mints a session holding a working pdk", func(t *testing.T) {
		result, err := fx.uc.Login(ctx, LoginInput{Handle: "alice", Password: "passw0rd!X"})
		require.NoError(t, err)

		session := result.Session
		assert.NotEmpty(t, session.Token)
		assert.NotEmpty(t, session.CSRFToken)
		assert.NotEqual(t, session.Token, session.CSRFToken)

		// The session PDK unwraps the stored DEK.
		user, err := fx.repo.GetByHandle(ctx, "alice")
		require.NoError(t, err)
		dek, err := fx.keyManager.UnwrapUserDekWithPDK(cryptoService.UserDek{
			EncryptedKey: user.EncryptedDek,
			Nonce:        user.DekNonce,
			Salt:         user.DekSalt,
		}, session.PDK)
		require.NoError(t, err)
		assert.Len(t, dek, 32)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := fx.uc.Login(ctx, LoginInput{Handle: "alice", Password: "wrong"})
		assert.ErrorIs(t, err, authDomain.ErrBadCredentials)
	})

	t.Run("unknown handle", func(t *testing.T) {
		_, err := fx.uc.Login(ctx, LoginInput{Handle: "nobody", Password: "passw0rd!X"})
		assert.ErrorIs(t, err, authDomain.ErrBadCredentials)
	})
}

func TestAuthUseCase_ChangePassword(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t)

	_, err := fx.uc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Handle:   "alice",
		Password: "passw0rd!X",
	})
	require.NoError(t, err)

	// Remember the DEK value before the change.
	userBefore, err := fx.repo.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	dekBefore, err := fx.keyManager.UnwrapUserDek(cryptoService.UserDek{
		EncryptedKey: userBefore.EncryptedDek,
		Nonce:        userBefore.DekNonce,
		Salt:         userBefore.DekSalt,
	}, "passw0rd!X")
	require.NoError(t, err)

	current, err := fx.uc.Login(ctx, LoginInput{Handle: "alice", Password: "passw0rd!X"})
	require.NoError(t, err)
	other, err := fx.uc.Login(ctx, LoginInput{Handle: "alice", Password: "passw0rd!X"})
	require.NoError(t, err)

	t.Run("wrong old password", func(t *testing.T) {
		err := fx.uc.ChangePassword(ctx, current.Session.Token, ChangePasswordInput{
			OldPassword: "wrong",
			NewPassword: "n3wP@ssword",
		})
		assert.ErrorIs(t, err, authDomain.ErrBadCredentials)
	})

	require.NoError(t, fx.uc.ChangePassword(ctx, current.Session.Token, ChangePasswordInput{
		OldPassword: "passw0rd!X",
		NewPassword: "n3wP@ssword",
	}))

	t.Run("dek value is unchanged under the new password", func(t *testing.T) {
		userAfter, err := fx.repo.GetByHandle(ctx, "alice")
		require.NoError(t, err)

		dekAfter, err := fx.keyManager.UnwrapUserDek(cryptoService.UserDek{
			EncryptedKey: userAfter.EncryptedDek,
			Nonce:        userAfter.DekNonce,
			Salt:         userAfter.DekSalt,
		}, "n3wP@ssword")
		require.NoError(t, err)
		assert.Equal(t, dekBefore, dekAfter)
	})

	t.Run("the calling session survives with a refreshed pdk", func(t *testing.T) {
		session, ok := fx.sessionStore.Get(current.Session.Token)
		require.True(t, ok)

		userAfter, err := fx.repo.GetByHandle(ctx, "alice")
		require.NoError(t, err)
		_, err = fx.keyManager.UnwrapUserDekWithPDK(cryptoService.UserDek{
			EncryptedKey: userAfter.EncryptedDek,
			Nonce:        userAfter.DekNonce,
			Salt:         userAfter.DekSalt,
		}, session.PDK)
		assert.NoError(t, err)
	})

	t.Run("other sessions are revoked", func(t *testing.T) {
		_, ok := fx.sessionStore.Get(other.Session.Token)
		assert.False(t, ok)
	})

	t.Run("login with the new password works", func(t *testing.T) {
		_, err := fx.uc.Login(ctx, LoginInput{Handle: "alice", Password: "n3wP@ssword"})
		assert.NoError(t, err)
	})

	t.Run("login with the old password fails", func(t *testing.T) {
		_, err := fx.uc.Login(ctx, LoginInput{Handle: "alice", Password: "passw0rd!X"})
		assert.ErrorIs(t, err, authDomain.ErrBadCredentials)
	})
}
