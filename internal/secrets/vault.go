// Package secrets fetches runtime secrets from HashiCorp Vault. It is an
// optional layer: deployments without Vault configure everything through the
// environment instead.
package secrets

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
)

// VaultConfig locates the KV v2 secret holding the application's key material.
type VaultConfig struct {
	Address string
	Token   string
	Mount   string
	Path    string
}

// VaultSource reads secrets from a KV v2 mount.
type VaultSource struct {
	client *api.Client
	mount  string
	path   string
}

// NewVaultSource creates a Vault client for the configured mount.
func NewVaultSource(cfg *VaultConfig) (*VaultSource, error) {
	apiConfig := api.DefaultConfig()
	apiConfig.Address = cfg.Address

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultSource{
		client: client,
		mount:  cfg.Mount,
		path:   cfg.Path,
	}, nil
}

// Fetch returns the string fields of the secret. Non-string fields are
// skipped.
func (s *VaultSource) Fetch(ctx context.Context) (map[string]string, error) {
	secret, err := s.client.KVv2(s.mount).Get(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s/%s: %w", s.mount, s.path, err)
	}

	out := make(map[string]string, len(secret.Data))
	for key, value := range secret.Data {
		if str, ok := value.(string); ok && str != "" {
			out[key] = str
		}
	}
	return out, nil
}
