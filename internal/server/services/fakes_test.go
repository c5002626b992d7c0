package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/dmitrijs2005/talenthub/internal/dbx"
	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/auth"
	"github.com/dmitrijs2005/talenthub/internal/server/codecache"
	"github.com/dmitrijs2005/talenthub/internal/server/config"
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- in-memory credential store ---

type memUsers struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]*models.User
	findErr error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*models.User{}} }

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	m.seq++
	c := *u
	c.ID = fmt.Sprintf("user-%d", m.seq)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (m *memUsers) FindFirstByRole(_ context.Context, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Role == role {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) UpdateFlags(_ context.Context, id string, flags models.UserFlags) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if flags.TwoFactorEnabled != nil {
		u.TwoFactorEnabled = *flags.TwoFactorEnabled
	}
	out := *u
	return &out, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// --- in-memory refresh token ledger ---

type memTokens struct {
	mu        sync.Mutex
	seq       int
	byToken   map[string]*models.RefreshToken
	insertErr error
	purgeErr  error
	purged    int
}

func newMemTokens() *memTokens { return &memTokens{byToken: map[string]*models.RefreshToken{}} }

func (m *memTokens) Insert(_ context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if _, dup := m.byToken[t.Token]; dup {
		return nil, common.ErrorAlreadyExists
	}
	m.seq++
	c := *t
	c.ID = fmt.Sprintf("rt-%d", m.seq)
	c.CreatedAt = time.Now()
	m.byToken[c.Token] = &c
	out := c
	return &out, nil
}

func (m *memTokens) FindByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *t
	return &out, nil
}

func (m *memTokens) Revoke(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byToken {
		if t.ID == id {
			if t.Revoked {
				return false, nil
			}
			t.Revoked = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memTokens) DeleteExpiredOrRevoked(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged++
	if m.purgeErr != nil {
		return 0, m.purgeErr
	}
	var n int64
	for k, t := range m.byToken {
		if !t.Usable(now) {
			delete(m.byToken, k)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) get(token string) *models.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byToken[token]
	if !ok {
		return nil
	}
	out := *t
	return &out
}

func (m *memTokens) expire(token string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byToken[token].ExpiresAt = at
}

func (m *memTokens) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byToken)
}

type fakeRepoManager struct {
	users      *memUsers
	tokens     *memTokens
	migrateErr error
	migrations int
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	f.migrations++
	return f.migrateErr
}

func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository { return f.users }

func (f *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return f.tokens }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

// --- notifier capturing what would have been mailed ---

type sentMail struct {
	To    string
	Value string
}

type fakeNotifier struct {
	mu           sync.Mutex
	verification []sentMail
	codes        []sentMail
	fail         bool
}

func (n *fakeNotifier) SendVerificationEmail(_ context.Context, to, token string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verification = append(n.verification, sentMail{To: to, Value: token})
	return !n.fail
}

func (n *fakeNotifier) Send2FACode(_ context.Context, to, code string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, sentMail{To: to, Value: code})
	return !n.fail
}

func (n *fakeNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.codes, "no code was sent")
	return n.codes[len(n.codes)-1].Value
}

func (n *fakeNotifier) lastVerificationToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.verification, "no verification email was sent")
	return n.verification[len(n.verification)-1].Value
}

// --- harness ---

type harness struct {
	svc      *AuthService
	admin    *AdminService
	rm       *fakeRepoManager
	notifier *fakeNotifier
	codec    *auth.Codec
	redis    *miniredis.Miniredis
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	codec, err := auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenValidityDuration,
		RefreshTTL:    cfg.RefreshTokenValidityDuration,
	})
	require.NoError(t, err)

	rm := &fakeRepoManager{users: newMemUsers(), tokens: newMemTokens()}
	notifier := &fakeNotifier{}
	logger := logging.New(logging.FormatJSON, "error", io.Discard)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	svc := NewAuthService(AuthDeps{
		RepoManager: rm,
		Codec:       codec,
		Codes:       codecache.NewRedisCache(client),
		Notifier:    notifier,
		Hasher:      hasher,
		Logger:      logger,
	}, cfg)
	// The in-memory repositories ignore the handle, so run fn directly.
	svc.withTx = func(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return fn(ctx, nil)
	}

	return &harness{
		svc:      svc,
		admin:    NewAdminService(nil, rm, hasher, logger, nil),
		rm:       rm,
		notifier: notifier,
		codec:    codec,
		redis:    mr,
	}
}

func (h *harness) register(t *testing.T, email string) string {
	t.Helper()
	res, err := h.svc.Register(context.Background(), RegisterInput{Name: "Ann", Email: email, Password: "Secret123"})
	require.NoError(t, err)
	return res.UserID
}

func (h *harness) enableTwoFactor(t *testing.T, email string) {
	t.Helper()
	u, err := h.rm.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	on := true
	_, err = h.rm.users.UpdateFlags(context.Background(), u.ID, models.UserFlags{TwoFactorEnabled: &on})
	require.NoError(t, err)
}

func (h *harness) login(t *testing.T, email string) *Session {
	t.Helper()
	res, err := h.svc.Login(context.Background(), LoginInput{Email: email, Password: "Secret123"}, ClientInfo{IPAddress: "10.0.0.1", UserAgent: "test-agent"})
	require.NoError(t, err)
	authd, ok := res.(LoginAuthenticated)
	require.True(t, ok, "expected LoginAuthenticated, got %T", res)
	return &authd.Session
}
