package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/session"
	"github.com/dmitrijs2005/bazaar/internal/client/storage"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/cryptox"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/strapitest"
	"github.com/dmitrijs2005/bazaar/internal/testutil"
)

// ---- helpers ----

type env struct {
	api     *strapitest.Server
	db      *storage.DB
	cache   *Cache
	session *session.Store
	persist *session.MetadataPersister
	clock   *testutil.StubClock
	client  *client.RESTClient

	auth     AuthService
	profile  ProfileService
	address  AddressService
	advert   AdvertService
	catalog  CatalogService
	uploader UploadService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	log := logging.Nop()

	db, err := storage.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		api:   strapitest.New(t),
		db:    db,
		cache: NewCache(db, log),
		clock: testutil.NewStubClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	sealer, err := cryptox.NewSealer([]byte("0123456789abcdef0123456789abcdef"), "session")
	require.NoError(t, err)
	e.persist = session.NewMetadataPersister(db.Metadata, sealer)
	e.session = session.NewStore(session.Options{
		Clock:     e.clock,
		Persister: e.persist,
		Logger:    log,
	})

	e.client, err = client.NewRESTClient(client.Options{
		BaseURL:        e.api.URL,
		Timeout:        2 * time.Second,
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
		BypassHeader:   common.DefaultProxyBypassHeader,
		BypassValue:    common.DefaultProxyBypassValue,
		Tokens:         e.session,
		Logger:         log,
	})
	require.NoError(t, err)

	e.auth = NewAuthService(e.client, e.session, e.cache, log)
	e.profile = NewProfileService(e.client, e.session, e.cache, log, time.Second)
	e.address = NewAddressService(e.client, e.session, e.cache, log, time.Second)
	e.advert = NewAdvertService(e.client, e.session, e.cache, log, time.Second)
	e.catalog = NewCatalogService(e.client, e.cache, log)
	e.uploader = NewUploadService(e.client, e.session, log)
	return e
}

// signIn registers a user on the fake API and logs in as them.
func (e *env) signIn(t *testing.T, username string) int64 {
	t.Helper()
	id := e.api.AddUser(username, username+"@test.com", "secret")
	_, err := e.auth.Login(context.Background(), username+"@test.com", "secret")
	require.NoError(t, err)
	return id
}
