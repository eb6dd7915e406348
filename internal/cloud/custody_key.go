package cloud

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// CustodyKeyService fetches the custody wallet secret from Secrets Manager
// and decrypts the private key with KMS. Results are cached for a short TTL
// so restart storms do not hammer AWS.
type CustodyKeyService struct {
	secretsClient *secretsmanager.Client
	kmsClient     *kms.Client
	cache         *secretCache
}

// custodySecret is the JSON layout of the stored wallet secret
type custodySecret struct {
	EncryptedPrivateKey string `json:"encrypted_private_key"`
	Address             string `json:"address"`
}

type secretCache struct {
	mu         sync.RWMutex
	data       map[string]cacheItem
	defaultTTL time.Duration
}

type cacheItem struct {
	value     string
	expiresAt time.Time
}

func newSecretCache(ttl time.Duration) *secretCache {
	return &secretCache{
		data:       make(map[string]cacheItem),
		defaultTTL: ttl,
	}
}

func (c *secretCache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheItem{value: value, expiresAt: time.Now().Add(c.defaultTTL)}
}

func (c *secretCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, exists := c.data[key]
	if !exists || time.Now().After(item.expiresAt) {
		return "", false
	}
	return item.value, true
}

// NewCustodyKeyService loads the default AWS config and prepares the clients
func NewCustodyKeyService(ctx context.Context) (*CustodyKeyService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &CustodyKeyService{
		secretsClient: secretsmanager.NewFromConfig(cfg),
		kmsClient:     kms.NewFromConfig(cfg),
		cache:         newSecretCache(15 * time.Minute),
	}, nil
}

// FetchCustodyKey returns the plaintext custody private key stored under
// secretID, decrypted with the KMS key behind keyAlias.
func (s *CustodyKeyService) FetchCustodyKey(ctx context.Context, secretID, keyAlias string) (string, error) {
	cacheKey := secretID + "/" + keyAlias
	if cached, ok := s.cache.get(cacheKey); ok {
		return cached, nil
	}

	secretValue, err := s.secretsClient.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", secretID, err)
	}
	if secretValue.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string payload", secretID)
	}

	var secret custodySecret
	if err := json.Unmarshal([]byte(*secretValue.SecretString), &secret); err != nil {
		return "", fmt.Errorf("failed to parse secret %s: %w", secretID, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(secret.EncryptedPrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted private key: %w", err)
	}

	decrypted, err := s.kmsClient.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
		KeyId:          aws.String(keyAlias),
	})
	if err != nil {
		return "", fmt.Errorf("failed to decrypt private key with %s: %w", keyAlias, err)
	}

	plaintext := string(decrypted.Plaintext)
	s.cache.set(cacheKey, plaintext)
	return plaintext, nil
}
