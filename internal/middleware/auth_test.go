package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashelf/internal/domain"
)

// accountRepoMock is a function-field mock of domain.AccountRepository;
// only GetByUsername is exercised by the auth middleware.
type accountRepoMock struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.Account, error)
}

func (m *accountRepoMock) Create(context.Context, *domain.Account) (*domain.Account, error) {
	return nil, nil
}
func (m *accountRepoMock) GetByID(context.Context, string) (*domain.Account, error) {
	return nil, nil
}
func (m *accountRepoMock) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return m.getByUsernameFn(ctx, username)
}
func (m *accountRepoMock) List(context.Context, domain.PageRequest) ([]domain.Account, int64, error) {
	return nil, 0, nil
}
func (m *accountRepoMock) Update(context.Context, *domain.Account) (*domain.Account, error) {
	return nil, nil
}
func (m *accountRepoMock) Delete(context.Context, string) error { return nil }

func signHS256(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iss": "test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthBindsPrincipal(t *testing.T) {
	validator, err := NewHS256Validator("test-secret")
	require.NoError(t, err)

	accounts := &accountRepoMock{
		getByUsernameFn: func(_ context.Context, username string) (*domain.Account, error) {
			require.Equal(t, "alice", username)
			return &domain.Account{ID: "a1", Username: "alice", Role: "USER", Enabled: true}, nil
		},
	}

	var got domain.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := domain.ResolvePrincipal(r.Context())
		require.NoError(t, err)
		got = p
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signHS256(t, "test-secret", "alice"))
	rec := httptest.NewRecorder()

	Auth(validator, accounts)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", got.AccountID)
	assert.Equal(t, "USER", got.Role)
	assert.True(t, got.Enabled)
}

func TestAuthDisabledAccountStillResolves(t *testing.T) {
	validator, err := NewHS256Validator("test-secret")
	require.NoError(t, err)

	accounts := &accountRepoMock{
		getByUsernameFn: func(context.Context, string) (*domain.Account, error) {
			return &domain.Account{ID: "a1", Username: "alice", Role: "ADMIN", Enabled: false}, nil
		},
	}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		p, err := domain.ResolvePrincipal(r.Context())
		require.NoError(t, err)
		assert.False(t, p.Enabled, "the access layer, not the middleware, denies disabled principals")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signHS256(t, "test-secret", "alice"))
	Auth(validator, accounts)(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestAuthRejects(t *testing.T) {
	validator, err := NewHS256Validator("test-secret")
	require.NoError(t, err)

	accounts := &accountRepoMock{
		getByUsernameFn: func(context.Context, string) (*domain.Account, error) {
			return nil, domain.ErrNotFound("unknown")
		},
	}

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not be reached")
	})
	mw := Auth(validator, accounts)(next)

	cases := map[string]func(r *http.Request){
		"no header":     func(*http.Request) {},
		"not bearer":    func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
		"bad signature": func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+signHS256(t, "other-secret", "alice")) },
		"unknown user":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+signHS256(t, "test-secret", "alice")) },
	}
	for name, arrange := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		arrange(req)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestHS256ValidatorRejectsAlgConfusion(t *testing.T) {
	validator, err := NewHS256Validator("test-secret")
	require.NoError(t, err)

	// An unsigned token must never validate.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"})
	unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), unsigned)
	assert.Error(t, err)
}

func TestNewHS256ValidatorRequiresSecret(t *testing.T) {
	_, err := NewHS256Validator("")
	assert.Error(t, err)
}
