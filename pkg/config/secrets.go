package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// Encrypted secrets file parameters.
const (
	saltSize  = 16
	nonceSize = 12
	scryptN   = 32768 // 2^15
	scryptR   = 8
	scryptP   = 1
	keySize   = 32 // AES-256
)

// Environment variable names checked when a key is not in the secrets file.
var providerEnvVars = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGemini:    "GEMINI_API_KEY",
}

// Secrets holds decrypted provider API keys in memory. Values are never
// written to disk unencrypted.
type Secrets struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSecrets returns an empty in-memory secrets store.
func NewSecrets() *Secrets {
	return &Secrets{values: make(map[string]string)}
}

// Set stores a secret value in memory.
func (s *Secrets) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// Get returns a secret by name, falling back to the environment.
func (s *Secrets) Get(name string) (string, error) {
	s.mu.RLock()
	v := s.values[name]
	s.mu.RUnlock()
	if v != "" {
		return v, nil
	}
	if env := os.Getenv(name); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// APIKeyFor resolves the API key for a provider using the conventional
// environment variable name as the lookup key.
func (s *Secrets) APIKeyFor(provider string) (string, error) {
	envName, ok := providerEnvVars[provider]
	if !ok {
		return "", fmt.Errorf("provider %s does not use an API key", provider)
	}
	return s.Get(envName)
}

// Names returns the stored secret names, never the values.
func (s *Secrets) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	return names
}

// SaveEncrypted writes the secrets to path, encrypted with a key derived
// from password via scrypt and sealed with AES-256-GCM. The file is written
// with 0600 permissions.
func (s *Secrets) SaveEncrypted(path, password string) error {
	s.mu.RLock()
	plain, err := json.Marshal(s.values)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plain, nil)

	// File layout: salt || nonce || ciphertext.
	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// LoadEncrypted reads and decrypts a secrets file written by SaveEncrypted.
func LoadEncrypted(path, password string) (*Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}
	if len(data) < saltSize+nonceSize {
		return nil, fmt.Errorf("secrets file %s is truncated", path)
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	sealed := data[saltSize+nonceSize:]

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secrets (wrong password?): %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secrets: %w", err)
	}
	return &Secrets{values: values}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
