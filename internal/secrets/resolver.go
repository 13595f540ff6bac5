// Package secrets resolves `$AWS_SECRET:<name>` references in
// configuration values against AWS Secrets Manager, so a deployment
// can keep database DSNs and API credentials out of plain environment
// variables without the execution core growing its own secret store.
package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const refPrefix = "$AWS_SECRET:"

// Resolver resolves $AWS_SECRET: references, caching each secret's
// value for the lifetime of the process since Secrets Manager billing
// is per API call and a value rarely changes mid-run.
type Resolver struct {
	client *secretsmanager.Client

	mu    sync.Mutex
	cache map[string]string
}

// New builds a Resolver using the default AWS credential chain for
// region.
func New(ctx context.Context, region string) (*Resolver, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}
	return &Resolver{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]string),
	}, nil
}

// IsReference reports whether v is a $AWS_SECRET: reference.
func IsReference(v string) bool {
	return strings.HasPrefix(v, refPrefix)
}

// Resolve returns v unchanged if it is not a reference; otherwise it
// fetches (or returns the cached) secret value named by the reference.
func (r *Resolver) Resolve(ctx context.Context, v string) (string, error) {
	if !IsReference(v) {
		return v, nil
	}
	name := strings.TrimPrefix(v, refPrefix)

	r.mu.Lock()
	if cached, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return "", fmt.Errorf("secrets: get %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secrets: %q has no string value", name)
	}

	r.mu.Lock()
	r.cache[name] = *out.SecretString
	r.mu.Unlock()
	return *out.SecretString, nil
}

// ResolveAll resolves every value in env that is a reference, returning
// a new map; values that are not references pass through untouched.
func (r *Resolver) ResolveAll(ctx context.Context, env map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(env))
	for k, v := range env {
		resolved, err := r.Resolve(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("secrets: resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}
