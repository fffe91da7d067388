package usecase

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	cryptoService "github.com/allisson/vaultfs/internal/crypto/service"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
	"github.com/allisson/vaultfs/internal/files/storage"
	"github.com/allisson/vaultfs/internal/testutil"
	userDomain "github.com/allisson/vaultfs/internal/user/domain"
	userUsecase "github.com/allisson/vaultfs/internal/user/usecase"
)

// passthroughTxManager runs the function without a real transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeFileRepo keeps file records in memory with the same conditional
// transition semantics as the SQL repository.
type fakeFileRepo struct {
	mu    sync.Mutex
	files map[uuid.UUID]*filesDomain.File
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[uuid.UUID]*filesDomain.File)}
}

func (f *fakeFileRepo) Create(ctx context.Context, file *filesDomain.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *file
	copied.CreatedAt = time.Now().UTC()
	f.files[file.ID] = &copied
	return nil
}

func (f *fakeFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*filesDomain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, filesDomain.ErrFileNotFound
	}
	copied := *file
	return &copied, nil
}

func (f *fakeFileRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*filesDomain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok || file.UserID != userID || file.IsDeleted {
		return nil, filesDomain.ErrFileNotFound
	}
	copied := *file
	return &copied, nil
}

func (f *fakeFileRepo) MarkCompleted(ctx context.Context, file *filesDomain.File) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.files[file.ID]
	if !ok || stored.UserID != file.UserID || stored.UploadStatus != filesDomain.UploadPending {
		return false, nil
	}
	now := time.Now().UTC()
	stored.UploadStatus = filesDomain.UploadCompleted
	stored.EncryptedDek = file.EncryptedDek
	stored.DekNonce = file.DekNonce
	stored.Nonce = file.Nonce
	stored.KekVersion = file.KekVersion
	stored.ChecksumSHA256 = file.ChecksumSHA256
	stored.ChunksMetadata = file.ChunksMetadata
	stored.UploadedAt = &now
	return true, nil
}

func (f *fakeFileRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.files[id]
	if !ok || stored.UploadStatus != filesDomain.UploadPending {
		return false, nil
	}
	stored.UploadStatus = filesDomain.UploadFailed
	return true, nil
}

func (f *fakeFileRepo) SoftDelete(ctx context.Context, id, userID uuid.UUID) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.files[id]
	if !ok || stored.UserID != userID || stored.IsDeleted {
		return 0, false, nil
	}
	now := time.Now().UTC()
	stored.IsDeleted = true
	stored.DeletedAt = &now
	return stored.FileSize, true, nil
}

func (f *fakeFileRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int64) ([]*filesDomain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*filesDomain.File
	for _, file := range f.files {
		if file.UserID == userID && !file.IsDeleted {
			copied := *file
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) IncrementAccessCount(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[id]; ok {
		file.AccessCount++
	}
	return nil
}

func (f *fakeFileRepo) SumActiveSizes(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, file := range f.files {
		if file.UserID == userID && !file.IsDeleted && file.UploadStatus == filesDomain.UploadCompleted {
			sum += file.FileSize
		}
	}
	return sum, nil
}

func (f *fakeFileRepo) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*filesDomain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*filesDomain.File
	for _, file := range f.files {
		if file.UploadStatus == filesDomain.UploadPending && file.CreatedAt.Before(cutoff) {
			copied := *file
			out = append(out, &copied)
		}
	}
	return out, nil
}

// setCreatedAt backdates a record for cleanup tests.
func (f *fakeFileRepo) setCreatedAt(id uuid.UUID, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[id]; ok {
		file.CreatedAt = at
	}
}

// fakeStatsRepo records upload stat upserts.
type fakeStatsRepo struct {
	mu      sync.Mutex
	records []int64
}

func (f *fakeStatsRepo) RecordUpload(ctx context.Context, userID uuid.UUID, day time.Time, fileSize int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, fileSize)
	return nil
}

// fakeQuota tracks reserve/rollback traffic against a fixed quota.
type fakeQuota struct {
	mu        sync.Mutex
	quota     int64
	used      int64
	rollbacks []int64
}

func (f *fakeQuota) Reserve(ctx context.Context, userID uuid.UUID, n int64) (userUsecase.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	available := f.quota - f.used
	if n > available {
		return userUsecase.Reservation{OK: false, Available: available, UsedBytes: f.used},
			apperrors.ErrQuotaExceeded
	}
	f.used += n
	return userUsecase.Reservation{OK: true, Available: available, UsedBytes: f.used}, nil
}

func (f *fakeQuota) Rollback(ctx context.Context, userID uuid.UUID, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used -= n
	if f.used < 0 {
		f.used = 0
	}
	f.rollbacks = append(f.rollbacks, n)
	return nil
}

func (f *fakeQuota) ChangePlan(ctx context.Context, userID uuid.UUID, plan userDomain.Plan) error {
	return nil
}

func (f *fakeQuota) Recalculate(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.used, nil
}

func (f *fakeQuota) StorageInfo(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &userDomain.User{QuotaBytes: f.quota, UsedBytes: f.used}, nil
}

// fakeUserGetter serves one user whose DEK is wrapped under a known password.
type fakeUserGetter struct {
	user *userDomain.User
}

func (f *fakeUserGetter) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, userDomain.ErrUserNotFound
	}
	copied := *f.user
	return &copied, nil
}

// fakeFolderChecker approves a fixed set of folders.
type fakeFolderChecker struct {
	valid map[uuid.UUID]bool
}

func (f *fakeFolderChecker) Exists(ctx context.Context, folderID, userID uuid.UUID) (bool, error) {
	return f.valid[folderID], nil
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
	if version != f.version {
		return nil, cryptoDomain.ErrKekNotFound
	}
	return f.key, nil
}

// uploadFixture bundles the whole upload pipeline with real crypto and real
// on-disk staging under a temp dir.
type uploadFixture struct {
	userID     uuid.UUID
	password   string
	pdk        []byte
	fileRepo   *fakeFileRepo
	statsRepo  *fakeStatsRepo
	quota      *fakeQuota
	kek        *fakeKekUseCase
	keyManager cryptoService.KeyManager
	staging    *storage.Staging
	blobs      *storage.BlobStore
	upload     UploadUseCase
	files      FileUseCase
}

const testChunkSize = 8

func newUploadFixture(t *testing.T, quotaBytes int64) *uploadFixture {
	t.Helper()

	keyManager := cryptoService.NewKeyManager(cryptoService.NewAEADManager(), cryptoService.NewArgon2Deriver())
	deriver := cryptoService.NewArgon2Deriver()

	password := "passw0rd!X"
	wrapped, err := keyManager.CreateUserDek(password)
	require.NoError(t, err)

	user := &userDomain.User{
		ID:           uuid.Must(uuid.NewV7()),
		Handle:       "alice",
		EncryptedDek: wrapped.EncryptedKey,
		DekNonce:     wrapped.Nonce,
		DekSalt:      wrapped.Salt,
		QuotaBytes:   quotaBytes,
	}

	kekKey := make([]byte, 32)
	_, err = rand.Read(kekKey)
	require.NoError(t, err)

	staging, err := storage.NewStaging(t.TempDir() + "/staging")
	require.NoError(t, err)
	blobs, err := storage.NewBlobStore(t.TempDir() + "/files")
	require.NoError(t, err)

	fileRepo := newFakeFileRepo()
	statsRepo := &fakeStatsRepo{}
	quota := &fakeQuota{quota: quotaBytes}
	kek := &fakeKekUseCase{version: 1, key: kekKey}
	pool := semaphore.NewWeighted(2)
	logger := testutil.DiscardLogger()

	upload := NewUploadUseCase(
		passthroughTxManager{},
		fileRepo,
		statsRepo,
		&fakeUserGetter{user: user},
		&fakeFolderChecker{valid: map[uuid.UUID]bool{}},
		quota,
		keyManager,
		cryptoService.NewAEADManager(),
		kek,
		staging,
		blobs,
		pool,
		testChunkSize,
		cryptoDomain.AESGCM,
		logger,
	)

	files := NewFileUseCase(
		fileRepo,
		quota,
		keyManager,
		cryptoService.NewAEADManager(),
		kek,
		blobs,
		pool,
		cryptoDomain.AESGCM,
		logger,
	)

	return &uploadFixture{
		userID:     user.ID,
		password:   password,
		pdk:        deriver.DeriveKey(password, wrapped.Salt),
		fileRepo:   fileRepo,
		statsRepo:  statsRepo,
		quota:      quota,
		kek:        kek,
		keyManager: keyManager,
		staging:    staging,
		blobs:      blobs,
		upload:     upload,
		files:      files,
	}
}

// uploadWhole runs init/chunk/finalize for content split at testChunkSize.
func (fx *uploadFixture) uploadWhole(t *testing.T, content []byte) *filesDomain.File {
	t.Helper()
	ctx := context.Background()

	result, err := fx.upload.Init(ctx, fx.userID, InitUploadInput{
		FileName: "notes.txt",
		FileSize: int64(len(content)),
	})
	require.NoError(t, err)

	for i := 0; i < result.TotalChunks; i++ {
		start := int64(i) * result.ChunkSize
		end := start + result.ChunkSize
		if end > int64(len(content)) {
			end = int64(len(content))
		}
		require.NoError(t, fx.upload.Chunk(ctx, fx.userID, result.UploadID, i, content[start:end]))
	}

	file, err := fx.upload.Finalize(ctx, fx.userID, result.UploadID, fx.pdk)
	require.NoError(t, err)
	return file
}
