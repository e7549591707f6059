package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/strapitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, bool) { return string(s), s != "" }

func newClient(t *testing.T, baseURL string, tokens TokenSource, mutate ...func(*Options)) *RESTClient {
	t.Helper()
	opts := Options{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		RetryAttempts:  2,
		RetryBaseDelay: time.Millisecond,
		BypassHeader:   common.DefaultProxyBypassHeader,
		BypassValue:    common.DefaultProxyBypassValue,
		Tokens:         tokens,
		Logger:         logging.Nop(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := NewRESTClient(opts)
	require.NoError(t, err)
	return c
}

func TestNewRESTClient_RejectsBadURL(t *testing.T) {
	_, err := NewRESTClient(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
	_, err = NewRESTClient(Options{BaseURL: "://"})
	assert.Error(t, err)
}

func TestLogin_ReturnsTokenAndProfile(t *testing.T) {
	api := strapitest.New(t)
	id := api.AddUser("alice", "user@test.com", "secret")
	c := newClient(t, api.URL, nil)

	res, err := c.Login(context.Background(), "user@test.com", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, id, res.Profile.ID)
	assert.Equal(t, "alice", res.Profile.Username)

	uid, ok := TokenUserID(res.Token)
	require.True(t, ok)
	assert.Equal(t, id, uid)

	_, err = c.Login(context.Background(), "user@test.com", "wrong")
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadRequest, re.Status)
}

func TestTransport_StampsHeaders(t *testing.T) {
	api := strapitest.New(t)
	id := api.AddUser("alice", "a@test.com", "secret")
	c := newClient(t, api.URL, staticTokens(api.Token(id)))

	_, err := c.Profile(context.Background(), id)
	require.NoError(t, err)

	reqs := api.Requests()
	require.Len(t, reqs, 1)
	h := reqs[0].Header
	assert.Equal(t, "true", h.Get(common.DefaultProxyBypassHeader))
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.NotEmpty(t, h.Get(common.RequestIDHeaderName))
	assert.True(t, strings.HasPrefix(h.Get("Authorization"), "Bearer "))
	assert.Equal(t, []string{"addresses"}, reqs[0].Query["populate[0]"])
}

func TestTransport_MissingBypassHeaderIsRejected(t *testing.T) {
	api := strapitest.New(t)
	c := newClient(t, api.URL, nil, func(o *Options) { o.BypassHeader = "" })

	_, err := c.ListCategories(context.Background())
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusNetworkAuthenticationRequired, re.Status)
}

func TestAuthRequired_FailsFastWithoutToken(t *testing.T) {
	api := strapitest.New(t)
	c := newClient(t, api.URL, staticTokens(""))

	_, err := c.Profile(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = c.CreateAddress(context.Background(), models.AddressDraft{Name: "Home"})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	assert.Empty(t, api.Requests(), "no request may reach the network")
}

func TestPublicEndpointsWorkWithoutToken(t *testing.T) {
	api := strapitest.New(t)
	api.AddCategory("Toys", "toys")
	api.AddCategory("Bikes", "bikes")
	c := newClient(t, api.URL, nil)

	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Bikes", cats[0].Name)
	assert.Empty(t, api.Requests()[0].Header.Get("Authorization"))
}

func TestUnauthorizedResponseMatchesErrUnauthenticated(t *testing.T) {
	api := strapitest.New(t)
	c := newClient(t, api.URL, staticTokens("not-a-jwt"))

	_, err := c.Profile(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.ErrorIs(t, err, common.ErrRemoteFailed)
}

func TestProfile_AcceptsEnvelopeAndFlat(t *testing.T) {
	user := `{"id":42,"documentId":"u42","username":"alice","email":"user@test.com",
		"addresses":[{"id":3,"documentId":"a3"}],"user_adverts":[],
		"dateOfBirth":"1990-05-01","createdAt":"2024-01-02T03:04:05.000Z","updatedAt":"2024-01-02T03:04:05.000Z"}`

	for name, body := range map[string]string{
		"flat":     user,
		"envelope": `{"data":` + user + `,"meta":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/users/42", r.URL.Path)
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			p, err := newClient(t, srv.URL, staticTokens("t")).Profile(context.Background(), 42)
			require.NoError(t, err)
			assert.EqualValues(t, 42, p.ID)
			assert.Equal(t, []models.Ref{{ID: 3, DocumentID: "a3"}}, p.Addresses)
			assert.Equal(t, []int64{}, p.AdvertIDs())
			assert.Equal(t, time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC), p.DateOfBirth)
			assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), p.CreatedAt)
		})
	}
}

func TestMalformedTimestampIsLoggedAndZeroed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":7,"documentId":"d7","name":"Home","createdAt":"yesterday"}}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	log, err := logging.New("warn", &buf)
	require.NoError(t, err)

	c := newClient(t, srv.URL, staticTokens("t"), func(o *Options) { o.Logger = log })
	a, err := c.CreateAddress(context.Background(), models.AddressDraft{Name: "Home"})
	require.NoError(t, err)
	assert.EqualValues(t, 7, a.ID)
	assert.True(t, a.CreatedAt.IsZero())
	assert.Contains(t, buf.String(), "malformed timestamp")
	assert.Contains(t, buf.String(), "yesterday")
}

func TestAddress_BlankOptionalFieldsAreAbsent(t *testing.T) {
	api := strapitest.New(t)
	id := api.AddUser("alice", "a@test.com", "secret")
	c := newClient(t, api.URL, staticTokens(api.Token(id)))

	created, err := c.CreateAddress(context.Background(), models.AddressDraft{
		Name: "Home", AddressLine1: "1 High St", AddressLine2: "   ",
		City: "London", PostCode: "E1 6AN", Country: "UK", PhoneNumber: "",
	})
	require.NoError(t, err)
	assert.Equal(t, "", created.AddressLine2)
	assert.Equal(t, "", created.PhoneNumber)

	var sent struct {
		Data map[string]any `json:"data"`
	}
	reqs := api.Requests()
	require.NoError(t, json.Unmarshal(reqs[len(reqs)-1].Body, &sent))
	assert.NotContains(t, sent.Data, "addressLine2")
	assert.NotContains(t, sent.Data, "phoneNumber")
	assert.Equal(t, "E1 6AN", sent.Data["postCode"])

	list, err := c.ListAddresses(context.Background(), []int64{created.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "", list[0].AddressLine2)
}

func TestAddress_UpdateAndDelete(t *testing.T) {
	api := strapitest.New(t)
	id := api.AddUser("alice", "a@test.com", "secret")
	c := newClient(t, api.URL, staticTokens(api.Token(id)))
	ctx := context.Background()

	a, err := c.CreateAddress(ctx, models.AddressDraft{Name: "Home", AddressLine1: "1 High St", City: "London", PostCode: "E1 6AN", Country: "UK"})
	require.NoError(t, err)

	a.AddressLine2 = "Flat 2"
	updated, err := c.UpdateAddress(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "Flat 2", updated.AddressLine2)

	require.NoError(t, c.DeleteAddress(ctx, a.Ref()))
	assert.False(t, api.HasAddress(a.ID))

	err = c.DeleteAddress(ctx, a.Ref())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateAddress_BlankOptionalsAreCleared(t *testing.T) {
	api := strapitest.New(t)
	id := api.AddUser("alice", "a@test.com", "secret")
	c := newClient(t, api.URL, staticTokens(api.Token(id)))
	ctx := context.Background()

	a, err := c.CreateAddress(ctx, models.AddressDraft{
		Name: "Home", AddressLine1: "1 High St", AddressLine2: "Flat 2",
		City: "London", PostCode: "E1 6AN", Country: "UK", PhoneNumber: "+44 20 7946 0000",
	})
	require.NoError(t, err)

	a.AddressLine2, a.PhoneNumber = "", "  "
	updated, err := c.UpdateAddress(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "", updated.AddressLine2)
	assert.Equal(t, "", updated.PhoneNumber)

	reqs := api.Requests()
	var sent struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(reqs[len(reqs)-1].Body, &sent))
	assert.Contains(t, sent.Data, "addressLine2")
	assert.Nil(t, sent.Data["addressLine2"])
	assert.Nil(t, sent.Data["phoneNumber"])

	list, err := c.ListAddresses(ctx, []int64{a.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "", list[0].AddressLine2)
	assert.Equal(t, "London", list[0].City)
}

func TestListAddresses_NoIDsSkipsRequest(t *testing.T) {
	api := strapitest.New(t)
	c := newClient(t, api.URL, staticTokens("t"))

	list, err := c.ListAddresses(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, api.Requests())
}

func TestListAdverts_QueryAndPaging(t *testing.T) {
	api := strapitest.New(t)
	bikes := api.AddCategory("Bikes", "bikes")
	toys := api.AddCategory("Toys", "toys")
	api.AddAdvert("Road bike", 300, bikes)
	api.AddAdvert("Kids bike", 80, bikes)
	api.AddAdvert("Lego", 40, toys)
	c := newClient(t, api.URL, nil)

	page, err := c.ListAdverts(context.Background(), AdvertQuery{CategoryID: bikes, Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, page.Adverts, 1)
	assert.Equal(t, bikes, page.Adverts[0].CategoryID)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 1, PageCount: 2, Total: 2}, page.Pagination)

	q := api.Requests()[0].Query
	assert.Equal(t, "createdAt:desc", q.Get("sort"))
	assert.Equal(t, "image", q.Get("populate[0]"))
	assert.Equal(t, "1", q.Get("pagination[pageSize]"))

	empty, err := c.ListAdverts(context.Background(), AdvertQuery{IDs: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, empty.Adverts)
	assert.Len(t, api.Requests(), 1)
}

func TestAdvert_CreateWithImage(t *testing.T) {
	api := strapitest.New(t)
	id := api.AddUser("alice", "a@test.com", "secret")
	cat := api.AddCategory("Bikes", "bikes")
	c := newClient(t, api.URL, staticTokens(api.Token(id)))
	ctx := context.Background()

	img, err := c.Upload(ctx, "bike.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "bike.png", img.Name)
	assert.Equal(t, "image/png", img.Mime)
	assert.EqualValues(t, 9, img.Size)

	ad, err := c.CreateAdvert(ctx, models.AdvertDraft{Name: "Bike", Price: 120, CategoryID: cat, ImageID: img.ID})
	require.NoError(t, err)
	assert.Equal(t, cat, ad.CategoryID)
	require.NotNil(t, ad.Image)
	assert.Equal(t, img.ID, ad.Image.ID)
	assert.Equal(t, "", ad.Currency)

	ad.Price = 100
	ad, err = c.UpdateAdvert(ctx, ad)
	require.NoError(t, err)
	assert.Equal(t, 100.0, ad.Price)

	require.NoError(t, c.DeleteAdvert(ctx, ad.Ref()))
	assert.False(t, api.HasAdvert(ad.ID))
}

func TestUpdateProfile_SendsEnvelope(t *testing.T) {
	api := strapitest.New(t)
	id := api.AddUser("alice", "a@test.com", "secret")
	c := newClient(t, api.URL, staticTokens(api.Token(id)))
	ctx := context.Background()

	a, err := c.CreateAddress(ctx, models.AddressDraft{Name: "Home", AddressLine1: "1", City: "London", PostCode: "E1", Country: "UK"})
	require.NoError(t, err)

	first := "Alice"
	p, err := c.UpdateProfile(ctx, id, ProfilePatch{FirstName: &first, Addresses: []int64{a.ID}})
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.FirstName)
	assert.Equal(t, []int64{a.ID}, p.AddressIDs())

	p, err = c.UpdateProfile(ctx, id, ProfilePatch{Addresses: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, p.Addresses)
	assert.Equal(t, "Alice", p.FirstName, "untouched fields keep their value")
}

func TestProfilePatch_MarshalJSON(t *testing.T) {
	blank := "  "
	name := "Bob"
	dob := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)

	b, err := json.Marshal(ProfilePatch{FirstName: &name, PhoneNumber: &blank, DateOfBirth: &dob, Adverts: []int64{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstName":"Bob","phoneNumber":null,"dateOfBirth":"1990-05-01","user_adverts":[]}`, string(b))

	b, err = json.Marshal(ProfilePatch{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
	assert.True(t, ProfilePatch{}.IsEmpty())
}

// flaky closes the connection without answering for the first n requests.
func flaky(n int32, hits *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= n {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":1,"documentId":"c1","name":"Bikes","slug":"bikes"}]}`))
	})
}

func TestRetry_GetRecoversFromNetworkFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(flaky(2, &hits))
	defer srv.Close()

	cats, err := newClient(t, srv.URL, nil).ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	assert.EqualValues(t, 3, hits.Load())
}

func TestRetry_GivesUpAfterAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(flaky(100, &hits))
	defer srv.Close()

	_, err := newClient(t, srv.URL, nil).ListCategories(context.Background())
	assert.ErrorIs(t, err, common.ErrNetworkUnavailable)
	assert.EqualValues(t, 3, hits.Load())
}

func TestRetry_MutationsAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(flaky(100, &hits))
	defer srv.Close()

	_, err := newClient(t, srv.URL, staticTokens("t")).CreateAddress(context.Background(), models.AddressDraft{Name: "x"})
	assert.ErrorIs(t, err, common.ErrNetworkUnavailable)
	assert.EqualValues(t, 1, hits.Load())
}

func TestTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil, func(o *Options) {
		o.Timeout = 20 * time.Millisecond
		o.RetryAttempts = 0
	})
	_, err := c.ListCategories(context.Background())
	assert.ErrorIs(t, err, common.ErrTimeout)
}

func TestRefreshAndPasswordFlows(t *testing.T) {
	api := strapitest.New(t)
	id := api.AddUser("alice", "a@test.com", "secret")
	ctx := context.Background()

	c := newClient(t, api.URL, staticTokens(api.Token(id)))
	res, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	res, err = c.ChangePassword(ctx, "secret", "secret2", "secret2")
	require.NoError(t, err)
	assert.Equal(t, id, res.Profile.ID)

	require.NoError(t, c.ForgotPassword(ctx, "a@test.com"))
	code := api.ResetCode("a@test.com")
	require.NotEmpty(t, code)

	res, err = c.ResetPassword(ctx, code, "secret3", "secret3")
	require.NoError(t, err)
	assert.Equal(t, id, res.Profile.ID)

	_, err = c.Login(ctx, "alice", "secret3")
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))
}

func TestRegister(t *testing.T) {
	api := strapitest.New(t)
	c := newClient(t, api.URL, nil)

	res, err := c.Register(context.Background(), "bob", "bob@test.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bob", res.Profile.Username)

	_, err = c.Register(context.Background(), "bob", "bob@test.com", "secret1")
	assert.ErrorIs(t, err, common.ErrRemoteFailed)
}

func TestTokenUserID_Garbage(t *testing.T) {
	_, ok := TokenUserID("garbage")
	assert.False(t, ok)
}
