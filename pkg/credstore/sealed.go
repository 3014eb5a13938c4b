package credstore

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/frenchtutorhub/hub/pkg/cryptox"
)

// sealedScope encrypts values before they reach the underlying scope.
// Keys stay in the clear so backends can still index them.
type sealedScope struct {
	inner  Scope
	sealer *cryptox.Sealer
}

// Sealed wraps inner so every value is stored AES-GCM sealed and base64
// encoded. Values written without sealing fail to read back.
func Sealed(inner Scope, sealer *cryptox.Sealer) Scope {
	return &sealedScope{inner: inner, sealer: sealer}
}

func (s *sealedScope) Get(ctx context.Context, key string) (string, error) {
	enc, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("credstore: decode sealed %q: %w", key, err)
	}

	plain, err := s.sealer.Open(raw)
	if err != nil {
		return "", fmt.Errorf("credstore: open sealed %q: %w", key, err)
	}
	return string(plain), nil
}

func (s *sealedScope) Set(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal([]byte(value))
	if err != nil {
		return fmt.Errorf("credstore: seal %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(sealed))
}

func (s *sealedScope) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
