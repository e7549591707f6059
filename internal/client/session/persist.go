package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

const (
	keyToken     = "session.token"
	keyExpiresAt = "session.expires_at"
	keyUserID    = "session.user_id"
)

// KeyValueStore is the subset of the metadata repository the persister uses.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Sealer encrypts the token at rest.
type Sealer interface {
	Seal(plaintext, ad []byte) ([]byte, error)
	Open(blob, ad []byte) ([]byte, error)
}

// MetadataPersister stores the credential in the cache's metadata table with
// the token sealed.
type MetadataPersister struct {
	kv     KeyValueStore
	sealer Sealer
}

func NewMetadataPersister(kv KeyValueStore, sealer Sealer) *MetadataPersister {
	return &MetadataPersister{kv: kv, sealer: sealer}
}

func (p *MetadataPersister) Save(ctx context.Context, c Credential) error {
	sealed, err := p.sealer.Seal([]byte(c.Token), []byte(keyToken))
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return p.kv.SetMany(ctx, map[string][]byte{
		keyToken:     sealed,
		keyExpiresAt: []byte(timex.FormatTimestamp(c.ExpiresAt)),
		keyUserID:    []byte(strconv.FormatInt(c.UserID, 10)),
	})
}

// Load returns nil without error when nothing is stored. A credential that
// cannot be decoded is removed and reported.
func (p *MetadataPersister) Load(ctx context.Context) (*Credential, error) {
	sealed, err := p.kv.Get(ctx, keyToken)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c, err := p.decode(ctx, sealed)
	if err != nil {
		_ = p.Clear(ctx)
		return nil, fmt.Errorf("stored session unreadable: %w", err)
	}
	return c, nil
}

func (p *MetadataPersister) decode(ctx context.Context, sealed []byte) (*Credential, error) {
	token, err := p.sealer.Open(sealed, []byte(keyToken))
	if err != nil {
		return nil, err
	}
	rawExp, err := p.kv.Get(ctx, keyExpiresAt)
	if err != nil {
		return nil, err
	}
	exp, err := timex.ParseTimestamp(string(rawExp))
	if err != nil {
		return nil, err
	}
	rawID, err := p.kv.Get(ctx, keyUserID)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(string(rawID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return &Credential{Token: string(token), UserID: id, ExpiresAt: exp}, nil
}

func (p *MetadataPersister) Clear(ctx context.Context) error {
	return p.kv.Delete(ctx, keyToken, keyExpiresAt, keyUserID)
}
