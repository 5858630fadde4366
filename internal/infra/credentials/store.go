package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ldco/Kroma-sub000/internal/infra"
	"github.com/ldco/Kroma-sub000/internal/sqlinline"
)

// Providers whose API tokens can be stored out of band instead of flowing
// through the environment.
const (
	ProviderOpenAI    = "openai"
	ProviderPhotoroom = "photoroom"
	ProviderRemoveBg  = "removebg"
)

func knownProvider(provider string) bool {
	switch provider {
	case ProviderOpenAI, ProviderPhotoroom, ProviderRemoveBg:
		return true
	}
	return false
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) OpenAIAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderOpenAI)
}

func (s *Store) PhotoroomAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderPhotoroom)
}

func (s *Store) RemoveBgAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderRemoveBg)
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if !knownProvider(provider) {
		return "", fmt.Errorf("unknown credential provider %q", provider)
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores or replaces the token for provider.
func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	if !knownProvider(provider) {
		return fmt.Errorf("unknown credential provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("api token is required")
	}
	return s.upsert(ctx, provider, token, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
