package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/buddydiary/buddy-api/app/models"
	"github.com/buddydiary/buddy-api/app/repository"
	"github.com/buddydiary/buddy-api/internal/pkg/oauth"
	"github.com/buddydiary/buddy-api/internal/pkg/result"
	"github.com/buddydiary/buddy-api/internal/pkg/token"
)

// ---- in-memory fakes -------------------------------------------------------

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
	links  *fakeLinkRepo
}

func newFakeUserRepo(links *fakeLinkRepo) *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[uint]*models.User), links: links}
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) CreateWithProvider(user *models.User, account *models.ProviderAccount) error {
	if err := f.Create(user); err != nil {
		return err
	}
	account.UserID = user.ID
	return f.links.Create(account)
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == models.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (f *fakeUserRepo) Delete(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

type fakeLinkRepo struct {
	mu       sync.Mutex
	accounts []models.ProviderAccount
}

func (f *fakeLinkRepo) Create(account *models.ProviderAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if (a.UserID == account.UserID && a.Provider == account.Provider) ||
			(a.Provider == account.Provider && a.ProviderUserID == account.ProviderUserID) {
			return gorm.ErrDuplicatedKey
		}
	}
	account.ID = uint(len(f.accounts) + 1)
	f.accounts = append(f.accounts, *account)
	return nil
}

func (f *fakeLinkRepo) ExistsByUserAndProvider(userID uint, provider string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.UserID == userID && a.Provider == provider {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLinkRepo) GetByProviderUserID(provider, providerUserID string) (*models.ProviderAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Provider == provider && a.ProviderUserID == providerUserID {
			cp := a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLinkRepo) ListByUserID(userID uint) ([]models.ProviderAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ProviderAccount
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLinkRepo) DeleteByUserID(userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.accounts[:0]
	for _, a := range f.accounts {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	f.accounts = kept
	return nil
}

type fakeDiaryRepo struct {
	deletedFor []uint
}

func (f *fakeDiaryRepo) Create(*models.Diary) error                      { return nil }
func (f *fakeDiaryRepo) GetByID(uint) (*models.Diary, error)             { return nil, gorm.ErrRecordNotFound }
func (f *fakeDiaryRepo) Update(*models.Diary) error                      { return nil }
func (f *fakeDiaryRepo) ReplaceTags(*models.Diary, []models.Tag) error   { return nil }
func (f *fakeDiaryRepo) FindOrCreateTags([]string) ([]models.Tag, error) { return nil, nil }
func (f *fakeDiaryRepo) Delete(uint) error                               { return nil }
func (f *fakeDiaryRepo) GetByMonth(uint, int, time.Month) ([]models.Diary, error) {
	return nil, nil
}
func (f *fakeDiaryRepo) DeleteByUserID(userID uint) error {
	f.deletedFor = append(f.deletedFor, userID)
	return nil
}

// fakeVerifiers returns canned assertions keyed by credential.
type fakeVerifiers struct {
	assertions map[string]oauth.UserInfo
}

type fakeVerifier struct {
	provider   string
	assertions map[string]oauth.UserInfo
}

func (f *fakeVerifiers) For(provider string) (oauth.Verifier, error) {
	if !models.IsSupportedProvider(provider) {
		return nil, oauth.ErrUnsupportedProvider
	}
	return &fakeVerifier{provider: provider, assertions: f.assertions}, nil
}

func (f *fakeVerifier) Verify(credential string) (oauth.UserInfo, error) {
	info, ok := f.assertions[credential]
	if !ok || info.Provider != f.provider {
		return oauth.UserInfo{}, oauth.ErrInvalidProviderToken
	}
	return info, nil
}

// memoryTicketStore mirrors Redis GETDEL semantics.
type memoryTicketStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func (m *memoryTicketStore) Set(key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryTicketStore) GetDel(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.entries[key]
	if !ok {
		return "", oauth.ErrTicketNotFound
	}
	delete(m.entries, key)
	return val, nil
}

type memoryRefreshStore struct {
	mu       sync.Mutex
	sessions map[uint]string
}

func (m *memoryRefreshStore) Put(userID uint, tok string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = tok
	return nil
}

func (m *memoryRefreshStore) Get(userID uint) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.sessions[userID]
	if !ok {
		return "", token.ErrSessionNotFound
	}
	return tok, nil
}

func (m *memoryRefreshStore) Delete(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// ---- harness ---------------------------------------------------------------

type harness struct {
	svc     *Service
	users   *fakeUserRepo
	links   *fakeLinkRepo
	diaries *fakeDiaryRepo
}

func newHarness(assertions map[string]oauth.UserInfo) *harness {
	links := &fakeLinkRepo{}
	users := newFakeUserRepo(links)
	diaries := &fakeDiaryRepo{}
	repos := &repository.Repositories{User: users, ProviderAccount: links, Diary: diaries}

	tokens := token.NewService(
		"test-secret-at-least-32-bytes-long!!",
		15*time.Minute, 14*24*time.Hour,
		&memoryRefreshStore{sessions: make(map[uint]string)},
	)
	broker := oauth.NewBroker(&memoryTicketStore{entries: make(map[string]string)})

	return &harness{
		svc:     NewService(repos, tokens, broker, &fakeVerifiers{assertions: assertions}),
		users:   users,
		links:   links,
		diaries: diaries,
	}
}

func assertCode(t *testing.T, err error, code result.Code) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, result.NewError(code))
}

// ---- tests -----------------------------------------------------------------

func TestSignupCreatesLocalAccount(t *testing.T) {
	h := newHarness(nil)

	user, err := h.svc.Signup("A@X.com", "pw123456", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.True(t, user.HasPassword())
	assert.True(t, user.CheckPassword("pw123456"))

	links, _ := h.links.ListByUserID(user.ID)
	assert.Empty(t, links)
}

func TestSignupDuplicateEmail(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	_, err = h.svc.Signup("a@x.com", "other-pw-99", "Impostor")
	assertCode(t, err, result.EmailDuplicated)
	assert.Len(t, h.users.users, 1)
}

func TestLocalLoginScenario(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	res, err := h.svc.LocalLogin("a@x.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.Equal(t, "Ann", res.User.Name)

	_, err = h.svc.LocalLogin("a@x.com", "wrongpw")
	assertCode(t, err, result.InvalidCredentials)
}

func TestLocalLoginUnknownEmailSameError(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.LocalLogin("nobody@x.com", "whatever1")
	assertCode(t, err, result.InvalidCredentials)
}

func TestLocalLoginProviderOnlyAccountHasNoPassword(t *testing.T) {
	h := newHarness(map[string]oauth.UserInfo{
		"cred": {Provider: "google", ProviderUserID: "g-1", Email: "a@x.com", Name: "Ann"},
	})

	_, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)

	_, err = h.svc.LocalLogin("a@x.com", "")
	assertCode(t, err, result.InvalidCredentials)
}

func TestSocialLoginNewUser(t *testing.T) {
	h := newHarness(map[string]oauth.UserInfo{
		"cred": {Provider: "google", ProviderUserID: "g-1", Email: "a@x.com", Name: "Ann"},
	})

	res, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.False(t, res.User.HasPassword())

	links, _ := h.links.ListByUserID(res.User.ID)
	require.Len(t, links, 1)
	assert.Equal(t, "google", links[0].Provider)
	assert.Equal(t, "g-1", links[0].ProviderUserID)
}

func TestSocialLoginExistingLinkedUser(t *testing.T) {
	h := newHarness(map[string]oauth.UserInfo{
		"cred": {Provider: "google", ProviderUserID: "g-1", Email: "a@x.com", Name: "Ann"},
	})

	first, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)

	second, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, second.Status)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Len(t, h.users.users, 1)
}

func TestSocialLoginExistingUnlinkedRequiresLinking(t *testing.T) {
	h := newHarness(map[string]oauth.UserInfo{
		"cred": {Provider: "google", ProviderUserID: "g-1", Email: "a@x.com", Name: "Ann"},
	})

	_, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	res, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)
	assert.Equal(t, StatusRequiresLinking, res.Status)
	assert.NotEmpty(t, res.LinkKey)
	assert.Empty(t, res.Tokens.AccessToken)

	// No link was created as a side effect
	assert.Empty(t, h.links.accounts)
}

func TestCompleteLink(t *testing.T) {
	h := newHarness(map[string]oauth.UserInfo{
		"cred": {Provider: "google", ProviderUserID: "g-1", Email: "a@x.com", Name: "Ann"},
	})

	user, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	res, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)
	require.Equal(t, StatusRequiresLinking, res.Status)

	linked, err := h.svc.CompleteLink(res.LinkKey)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, linked.Status)
	assert.NotEmpty(t, linked.Tokens.AccessToken)
	assert.Equal(t, user.ID, linked.User.ID)

	links, _ := h.links.ListByUserID(user.ID)
	require.Len(t, links, 1)
	assert.Equal(t, "google", links[0].Provider)

	// The consumed ticket cannot be replayed
	_, err = h.svc.CompleteLink(res.LinkKey)
	assertCode(t, err, result.LinkKeyNotFound)
}

func TestCompleteLinkUnknownKey(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.CompleteLink("never-issued")
	assertCode(t, err, result.LinkKeyNotFound)
}

func TestCompleteLinkAccountVanished(t *testing.T) {
	h := newHarness(map[string]oauth.UserInfo{
		"cred": {Provider: "google", ProviderUserID: "g-1", Email: "a@x.com", Name: "Ann"},
	})

	user, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	res, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)

	require.NoError(t, h.users.Delete(user.ID))

	_, err = h.svc.CompleteLink(res.LinkKey)
	assertCode(t, err, result.UserNotFound)
}

func TestCompleteLinkRaceAlreadyLinked(t *testing.T) {
	h := newHarness(map[string]oauth.UserInfo{
		"cred": {Provider: "google", ProviderUserID: "g-1", Email: "a@x.com", Name: "Ann"},
	})

	user, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	res, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)

	// A concurrent completion created the link between ticket issue and use
	require.NoError(t, h.links.Create(&models.ProviderAccount{
		UserID: user.ID, Provider: "google", ProviderUserID: "g-1",
	}))

	_, err = h.svc.CompleteLink(res.LinkKey)
	assertCode(t, err, result.AlreadyLinkedAccount)
	assert.Len(t, h.links.accounts, 1)
}

func TestSocialLoginUnsupportedProvider(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.SocialLogin("github", "cred")
	assertCode(t, err, result.UnsupportedProvider)
}

func TestSocialLoginVerificationFailure(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.SocialLogin("google", "bad-credential")
	assertCode(t, err, result.InvalidToken)
}

func TestRefreshRotation(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)
	res, err := h.svc.LocalLogin("a@x.com", "pw123456")
	require.NoError(t, err)

	pair, err := h.svc.Refresh(res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// Superseded token is fatal
	_, err = h.svc.Refresh(res.Tokens.RefreshToken)
	assertCode(t, err, result.RefreshTokenNotFound)

	// Garbage is an invalid token, not a missing session
	_, err = h.svc.Refresh("not.a.jwt")
	assertCode(t, err, result.InvalidToken)
}

func TestLogoutKillsRefreshSession(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)
	res, err := h.svc.LocalLogin("a@x.com", "pw123456")
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(res.User.ID))

	_, err = h.svc.Refresh(res.Tokens.RefreshToken)
	assertCode(t, err, result.RefreshTokenNotFound)
}

func TestExchangeLoginTicket(t *testing.T) {
	h := newHarness(nil)

	user, err := h.svc.Signup("a@x.com", "pw123456", "Ann")
	require.NoError(t, err)

	key, err := h.svc.CreateLoginTicket(user.ID)
	require.NoError(t, err)

	res, err := h.svc.ExchangeLoginTicket(key)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, user.ID, res.User.ID)

	_, err = h.svc.ExchangeLoginTicket(key)
	assertCode(t, err, result.LinkKeyNotFound)
}

func TestDeleteAccountCascades(t *testing.T) {
	h := newHarness(map[string]oauth.UserInfo{
		"cred": {Provider: "google", ProviderUserID: "g-1", Email: "a@x.com", Name: "Ann"},
	})

	res, err := h.svc.SocialLogin("google", "cred")
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteAccount(res.User.ID))

	_, err = h.users.GetByID(res.User.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	links, _ := h.links.ListByUserID(res.User.ID)
	assert.Empty(t, links)
	assert.Contains(t, h.diaries.deletedFor, res.User.ID)

	_, err = h.svc.Refresh(res.Tokens.RefreshToken)
	assertCode(t, err, result.RefreshTokenNotFound)
}
