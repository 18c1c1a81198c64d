package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Keystore resolves a sender address to its signing key.
type Keystore interface {
	Key(address string) (*ecdsa.PrivateKey, error)
}

// DirKeystore loads hex-encoded private keys from a directory where each file
// is named by the lower-cased account address it controls.
type DirKeystore struct {
	dir string

	mu   sync.RWMutex
	keys map[string]*ecdsa.PrivateKey
}

// NewDirKeystore constructs a keystore rooted at dir.
func NewDirKeystore(dir string) (*DirKeystore, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("keystore dir required")
	}
	info, err := os.Stat(trimmed)
	if err != nil {
		return nil, fmt.Errorf("keystore dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keystore path %s is not a directory", trimmed)
	}
	return &DirKeystore{dir: trimmed, keys: make(map[string]*ecdsa.PrivateKey)}, nil
}

// Key returns the private key for the given address, loading and caching it on
// first use. The derived address must match the file name.
func (ks *DirKeystore) Key(address string) (*ecdsa.PrivateKey, error) {
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" {
		return nil, fmt.Errorf("keystore: address required")
	}

	ks.mu.RLock()
	key, ok := ks.keys[addr]
	ks.mu.RUnlock()
	if ok {
		return key, nil
	}

	raw, err := os.ReadFile(filepath.Join(ks.dir, addr))
	if err != nil {
		return nil, fmt.Errorf("keystore: no key for %s: %w", addr, err)
	}
	hexKey := strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x")
	key, err = gethcrypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode key for %s: %w", addr, err)
	}
	derived := strings.ToLower(gethcrypto.PubkeyToAddress(key.PublicKey).Hex())
	if derived != addr {
		return nil, fmt.Errorf("keystore: key file %s derives address %s", addr, derived)
	}

	ks.mu.Lock()
	ks.keys[addr] = key
	ks.mu.Unlock()
	return key, nil
}
