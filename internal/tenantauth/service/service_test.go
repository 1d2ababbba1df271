package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/limitx"
	"github.com/stretchr/testify/require"
)

const (
	testMaster  = "00112233445566778899aabbccddeeff"
	testSigning = "signing-secret-for-tests-only-0123"

	// Well known development key pairs.
	aliceKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	aliceAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	bobKey       = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	bobAddress   = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type fixture struct {
	store    *sqlite.Store
	tokens   *TokenIssuer
	accounts *AccountService
	clients  *ClientService
	users    *UserService
	sessions *SessionService
	signals  *SignalService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "tenantauth.db")))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewSignerHS256([]byte(testSigning))
	require.NoError(t, err)

	tokens := &TokenIssuer{
		Signer:     signer,
		Verifier:   jwtx.NewVerifierHS256([]byte(testSigning), jwtx.VerifyOptions{Issuer: "tenantauth-test"}),
		Issuer:     "tenantauth-test",
		APIServer:  "https://api.example.test",
		AuthServer: "https://auth.example.test",
	}
	accountSvc := &AccountService{Store: st, Master: testMaster, Cipher: cryptox.DefaultAlgorithm}
	clientSvc := &ClientService{Store: st, Accounts: accountSvc, Tokens: tokens, Limiter: limitx.New(limitx.StrictLimit)}
	userSvc := &UserService{Store: st, Accounts: accountSvc, Tokens: tokens, Limiter: limitx.New(limitx.StrictLimit)}

	return &fixture{
		store:    st,
		tokens:   tokens,
		accounts: accountSvc,
		clients:  clientSvc,
		users:    userSvc,
		sessions: &SessionService{Store: st, Clients: clientSvc, Users: userSvc, Tokens: tokens},
		signals:  &SignalService{Store: st},
	}
}

func (f *fixture) account(t *testing.T, name string) *domain.Account {
	t.Helper()
	a, err := f.accounts.Create(context.Background(), domain.AccountAttrs{Name: &name}, nil)
	require.NoError(t, err)
	return a
}

func (f *fixture) client(t *testing.T, account *domain.Account, name string) *domain.Client {
	t.Helper()
	c, err := f.clients.Create(context.Background(), account.ID, domain.ClientAttrs{Name: &name}, nil)
	require.NoError(t, err)
	return c
}

func (f *fixture) user(t *testing.T, account *domain.Account, address string) *domain.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), account.ID, domain.UserAttrs{PublicAddress: &address}, nil)
	require.NoError(t, err)
	return u
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, domain.StatusOf(err), "error: %v", err)
}
