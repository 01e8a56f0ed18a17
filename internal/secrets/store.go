// Package secrets checks that secret references in a settings tree point at
// something that exists. Secret values are never read into output.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sourceplane/pipecfg/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store answers whether a locator exists in one secret backend
type Store interface {
	Scheme() string
	Exists(ctx context.Context, locator string) (bool, error)
}

// EnvStore resolves env: references against an optional .env file and the
// process environment
type EnvStore struct {
	fileValues map[string]string
	lookupEnv  func(string) (string, bool)
}

// NewEnvStore creates an env store. envFile may be empty.
func NewEnvStore(envFile string) (*EnvStore, error) {
	values := map[string]string{}
	if envFile != "" {
		read, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
		values = read
	}
	return &EnvStore{fileValues: values, lookupEnv: os.LookupEnv}, nil
}

func (s *EnvStore) Scheme() string { return model.SchemeEnv }

func (s *EnvStore) Exists(_ context.Context, name string) (bool, error) {
	if v, ok := s.fileValues[name]; ok && v != "" {
		return true, nil
	}
	v, ok := s.lookupEnv(name)
	return ok && v != "", nil
}

// RedisStore resolves redis: references to keys under a prefix
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the redis server at url
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Scheme() string { return model.SchemeRedis }

func (s *RedisStore) Exists(ctx context.Context, locator string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+locator).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up redis key: %w", err)
	}
	return n > 0, nil
}

// Close releases the redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type versionLookup func(ctx context.Context, name string) (*secretmanagerpb.SecretVersion, error)

// GCPStore resolves gcpsm: references with Secret Manager version metadata.
// The payload is never accessed.
type GCPStore struct {
	project string
	lookup  versionLookup
	close   func() error
}

// NewGCPStore creates a Secret Manager client using application default
// credentials. project qualifies locators that are not full resource names.
func NewGCPStore(ctx context.Context, project string) (*GCPStore, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	lookup := func(ctx context.Context, name string) (*secretmanagerpb.SecretVersion, error) {
		return client.GetSecretVersion(ctx, &secretmanagerpb.GetSecretVersionRequest{Name: name})
	}
	return &GCPStore{project: project, lookup: lookup, close: client.Close}, nil
}

func (s *GCPStore) Scheme() string { return model.SchemeGCPSecret }

// VersionName expands a locator to a secret version resource name. Accepted
// forms are "name", "projects/p/secrets/name" and either with "/versions/v".
func (s *GCPStore) VersionName(locator string) (string, error) {
	name := locator
	if !strings.HasPrefix(name, "projects/") {
		if s.project == "" {
			return "", errors.New("short secret name needs a GCP project")
		}
		name = fmt.Sprintf("projects/%s/secrets/%s", s.project, name)
	}
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}
	return name, nil
}

func (s *GCPStore) Exists(ctx context.Context, locator string) (bool, error) {
	name, err := s.VersionName(locator)
	if err != nil {
		return false, err
	}
	version, err := s.lookup(ctx, name)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get secret version: %w", err)
	}
	return version.GetState() == secretmanagerpb.SecretVersion_ENABLED, nil
}

// Close releases the client
func (s *GCPStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
