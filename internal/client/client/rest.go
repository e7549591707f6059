package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"
)

const defaultRetryBaseDelay = 200 * time.Millisecond

// Options configures a RESTClient.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	BypassHeader   string
	BypassValue    string
	Tokens         TokenSource
	Logger         logging.Logger

	// Base is the underlying round tripper; http.DefaultTransport when nil.
	Base http.RoundTripper
}

// RESTClient implements Client over HTTP.
type RESTClient struct {
	base           *url.URL
	http           *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	log            logging.Logger
	dec            decoder
}

var _ Client = (*RESTClient)(nil)

func NewRESTClient(opts Options) (*RESTClient, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	delay := opts.RetryBaseDelay
	if delay <= 0 {
		delay = defaultRetryBaseDelay
	}

	return &RESTClient{
		base: u,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &Transport{
				Base:         opts.Base,
				Tokens:       opts.Tokens,
				BypassHeader: opts.BypassHeader,
				BypassValue:  opts.BypassValue,
				Log:          log,
			},
		},
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: delay,
		log:            log,
		dec:            decoder{log: log},
	}, nil
}

// TokenUserID reads the numeric "id" claim of a token without verifying it.
func TokenUserID(token string) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	switch v := claims["id"].(type) {
	case float64:
		return int64(v), v > 0
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}

// rawBody is a pre-encoded request body, used for multipart uploads.
type rawBody struct {
	contentType string
	data        []byte
}

func (c *RESTClient) do(ctx context.Context, mode authMode, method, p string, query url.Values, body, out any) error {
	call := func(ctx context.Context) error {
		return c.once(ctx, mode, method, p, query, body, out)
	}
	if method != http.MethodGet || c.retryAttempts <= 0 {
		return call(ctx)
	}

	b := retry.WithMaxRetries(uint64(c.retryAttempts), retry.NewExponential(c.retryBaseDelay))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := call(ctx)
		if err != nil && retryable(err) {
			c.log.Debug(ctx, "retrying request", "method", method, "path", p, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *RESTClient) once(ctx context.Context, mode authMode, method, p string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = path.Join(c.base.Path, p)
	u.RawQuery = query.Encode()

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case rawBody:
		reader, contentType = bytes.NewReader(b.data), b.contentType
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, p, err)
		}
		reader, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(withAuthMode(ctx, mode), method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteError{Method: method, Path: p, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, p, classify(err))
	}
	return nil
}

func (c *RESTClient) auth(ctx context.Context, mode authMode, p string, body any) (*AuthResult, error) {
	var out authDTO
	if err := c.do(ctx, mode, http.MethodPost, p, nil, body, &out); err != nil {
		return nil, err
	}
	return &AuthResult{Token: out.JWT, Profile: c.dec.profile(ctx, out.User)}, nil
}

func (c *RESTClient) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	return c.auth(ctx, authNone, "/api/auth/local", map[string]string{
		"identifier": strings.TrimSpace(identifier),
		"password":   password,
	})
}

func (c *RESTClient) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	return c.auth(ctx, authNone, "/api/auth/local/register", map[string]string{
		"username": strings.TrimSpace(username),
		"email":    strings.TrimSpace(email),
		"password": password,
	})
}

func (c *RESTClient) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, authNone, http.MethodPost, "/api/auth/forgot-password", nil,
		map[string]string{"email": strings.TrimSpace(email)}, nil)
}

func (c *RESTClient) ResetPassword(ctx context.Context, code, password, confirmation string) (*AuthResult, error) {
	return c.auth(ctx, authNone, "/api/auth/reset-password", map[string]string{
		"code":                 strings.TrimSpace(code),
		"password":             password,
		"passwordConfirmation": confirmation,
	})
}

func (c *RESTClient) ChangePassword(ctx context.Context, current, password, confirmation string) (*AuthResult, error) {
	return c.auth(ctx, authRequired, "/api/auth/change-password", map[string]string{
		"currentPassword":      current,
		"password":             password,
		"passwordConfirmation": confirmation,
	})
}

func (c *RESTClient) Refresh(ctx context.Context) (*AuthResult, error) {
	return c.auth(ctx, authRequired, "/api/auth/refresh", struct{}{})
}

func (c *RESTClient) Logout(ctx context.Context) error {
	return c.do(ctx, authRequired, http.MethodPost, "/api/auth/logout", nil, struct{}{}, nil)
}

func profileQuery() url.Values {
	q := url.Values{}
	q.Set("populate[0]", "addresses")
	q.Set("populate[1]", "user_adverts")
	q.Set("populate[2]", "avatar")
	return q
}

// decodeUser accepts both {"data": {...}} and a bare user object.
func (c *RESTClient) decodeUser(ctx context.Context, raw json.RawMessage) (*models.Profile, error) {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	body := []byte(raw)
	if len(probe.Data) > 0 && probe.Data[0] == '{' {
		body = probe.Data
	}

	var u userDTO
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	p := c.dec.profile(ctx, u)
	return &p, nil
}

func (c *RESTClient) Profile(ctx context.Context, id int64) (*models.Profile, error) {
	var raw json.RawMessage
	if err := c.do(ctx, authRequired, http.MethodGet, userPath(id), profileQuery(), nil, &raw); err != nil {
		return nil, err
	}
	return c.decodeUser(ctx, raw)
}

func (c *RESTClient) UpdateProfile(ctx context.Context, id int64, patch ProfilePatch) (*models.Profile, error) {
	var raw json.RawMessage
	err := c.do(ctx, authRequired, http.MethodPut, userPath(id), profileQuery(),
		dataEnvelope[ProfilePatch]{Data: patch}, &raw)
	if err != nil {
		return nil, err
	}
	return c.decodeUser(ctx, raw)
}

func userPath(id int64) string {
	return "/api/users/" + strconv.FormatInt(id, 10)
}

const (
	addressesPath = "/api/addresses"
	advertsPath   = "/api/user-adverts"
)

func (c *RESTClient) CreateAddress(ctx context.Context, draft models.AddressDraft) (models.Address, error) {
	var out dataEnvelope[addressDTO]
	err := c.do(ctx, authRequired, http.MethodPost, addressesPath, nil,
		dataEnvelope[addressInput]{Data: newAddressInput(draft)}, &out)
	if err != nil {
		return models.Address{}, err
	}
	return c.dec.address(ctx, out.Data), nil
}

func (c *RESTClient) UpdateAddress(ctx context.Context, a models.Address) (models.Address, error) {
	var out dataEnvelope[addressDTO]
	err := c.do(ctx, authRequired, http.MethodPut, addressesPath+"/"+url.PathEscape(a.DocumentID), nil,
		dataEnvelope[addressUpdate]{Data: addressUpdate(newAddressInput(a.Draft()))}, &out)
	if err != nil {
		return models.Address{}, err
	}
	return c.dec.address(ctx, out.Data), nil
}

func (c *RESTClient) DeleteAddress(ctx context.Context, ref models.Ref) error {
	return c.do(ctx, authRequired, http.MethodDelete, addressesPath+"/"+url.PathEscape(ref.DocumentID), nil, nil, nil)
}

// ListAddresses returns the addresses with the given ids. No ids means no
// addresses; the API would otherwise return every address visible to the user.
func (c *RESTClient) ListAddresses(ctx context.Context, ids []int64) ([]models.Address, error) {
	if len(ids) == 0 {
		return []models.Address{}, nil
	}

	q := idFilter(ids)
	q.Set("pagination[pageSize]", strconv.Itoa(max(len(ids), 25)))
	q.Set("sort", "id:asc")

	var out dataEnvelope[[]addressDTO]
	if err := c.do(ctx, authRequired, http.MethodGet, addressesPath, q, nil, &out); err != nil {
		return nil, err
	}

	list := make([]models.Address, 0, len(out.Data))
	for _, a := range out.Data {
		list = append(list, c.dec.address(ctx, a))
	}
	return list, nil
}

func idFilter(ids []int64) url.Values {
	q := url.Values{}
	for i, id := range ids {
		q.Set(fmt.Sprintf("filters[id][$in][%d]", i), strconv.FormatInt(id, 10))
	}
	return q
}

func advertPopulate(q url.Values) {
	q.Set("populate[0]", "image")
	q.Set("populate[1]", "category")
}

func (c *RESTClient) CreateAdvert(ctx context.Context, draft models.AdvertDraft) (models.Advert, error) {
	q := url.Values{}
	advertPopulate(q)

	var out dataEnvelope[advertDTO]
	err := c.do(ctx, authRequired, http.MethodPost, advertsPath, q,
		dataEnvelope[advertInput]{Data: newAdvertInput(draft)}, &out)
	if err != nil {
		return models.Advert{}, err
	}
	return c.dec.advert(ctx, out.Data), nil
}

func (c *RESTClient) UpdateAdvert(ctx context.Context, a models.Advert) (models.Advert, error) {
	q := url.Values{}
	advertPopulate(q)

	var out dataEnvelope[advertDTO]
	err := c.do(ctx, authRequired, http.MethodPut, advertsPath+"/"+url.PathEscape(a.DocumentID), q,
		dataEnvelope[advertUpdate]{Data: advertUpdate(newAdvertInput(a.Draft()))}, &out)
	if err != nil {
		return models.Advert{}, err
	}
	return c.dec.advert(ctx, out.Data), nil
}

func (c *RESTClient) DeleteAdvert(ctx context.Context, ref models.Ref) error {
	return c.do(ctx, authRequired, http.MethodDelete, advertsPath+"/"+url.PathEscape(ref.DocumentID), nil, nil, nil)
}

func (c *RESTClient) ListAdverts(ctx context.Context, aq AdvertQuery) (*AdvertPage, error) {
	if aq.IDs != nil && len(aq.IDs) == 0 {
		return &AdvertPage{Adverts: []models.Advert{}}, nil
	}

	q := url.Values{}
	if aq.IDs != nil {
		q = idFilter(aq.IDs)
	}
	if aq.CategoryID != 0 {
		q.Set("filters[category][id][$eq]", strconv.FormatInt(aq.CategoryID, 10))
	}
	if aq.Page > 0 {
		q.Set("pagination[page]", strconv.Itoa(aq.Page))
	}
	if aq.PageSize > 0 {
		q.Set("pagination[pageSize]", strconv.Itoa(aq.PageSize))
	}
	q.Set("sort", "createdAt:desc")
	advertPopulate(q)

	mode := authRequired
	if aq.IDs == nil {
		mode = authOptional
	}

	var out dataEnvelope[[]advertDTO]
	if err := c.do(ctx, mode, http.MethodGet, advertsPath, q, nil, &out); err != nil {
		return nil, err
	}

	page := &AdvertPage{Adverts: make([]models.Advert, 0, len(out.Data)), Pagination: pagination(out.Meta)}
	for _, a := range out.Data {
		page.Adverts = append(page.Adverts, c.dec.advert(ctx, a))
	}
	return page, nil
}

func (c *RESTClient) ListCategories(ctx context.Context) ([]models.Category, error) {
	q := url.Values{}
	q.Set("sort", "name:asc")
	q.Set("pagination[pageSize]", "100")

	var out dataEnvelope[[]categoryDTO]
	if err := c.do(ctx, authOptional, http.MethodGet, "/api/categories", q, nil, &out); err != nil {
		return nil, err
	}

	list := make([]models.Category, 0, len(out.Data))
	for _, cat := range out.Data {
		list = append(list, category(cat))
	}
	return list, nil
}

// Upload sends r as a multipart "files" field and returns the stored file.
func (c *RESTClient) Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	ct := mime.TypeByExtension(filepath.Ext(filename))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(filepath.Base(filename))))
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var out []mediaDTO
	err = c.do(ctx, authRequired, http.MethodPost, "/api/upload", nil,
		rawBody{contentType: mw.FormDataContentType(), data: buf.Bytes()}, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("upload %s: empty response", filename)
	}
	return uploadedFile(&out[0]), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
