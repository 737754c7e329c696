// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// Wallet представляет кошелёк Solana.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(name, privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		Name:       name,
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// walletFile represents the structure of wallets YAML file
type walletFile struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

// LoadWallets загружает кошельки из YAML или CSV (колонки name, private_key) в порядке файла.
// Порядок важен: первый кошелёк группы платит комиссию транзакции.
func LoadWallets(path string) ([]*Wallet, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries [][2]string
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".csv":
		entries, err = parseCSV(data)
	default:
		entries, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("no wallets found in configuration")
	}

	wallets := make([]*Wallet, 0, len(entries))
	seen := make(map[solana.PublicKey]string, len(entries))
	for i, e := range entries {
		name := e[0]
		if name == "" {
			name = fmt.Sprintf("wallet-%d", i+1)
		}
		w, err := NewWallet(name, e[1])
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", name, err)
		}
		if prev, dup := seen[w.PublicKey]; dup {
			return nil, fmt.Errorf("wallet %q duplicates %q (%s)", name, prev, w.PublicKey)
		}
		seen[w.PublicKey] = name
		wallets = append(wallets, w)
	}
	return wallets, nil
}

func parseYAML(data []byte) ([][2]string, error) {
	var file walletFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	entries := make([][2]string, 0, len(file.Wallets))
	for _, w := range file.Wallets {
		entries = append(entries, [2]string{w.Name, w.PrivateKey})
	}
	return entries, nil
}

func parseCSV(data []byte) ([][2]string, error) {
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("CSV file is empty or missing data")
	}
	entries := make([][2]string, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 2 {
			return nil, fmt.Errorf("CSV row %d: expected 2 columns, got %d", i+2, len(record))
		}
		entries = append(entries, [2]string{record[0], record[1]})
	}
	return entries, nil
}

// PublicKeys возвращает публичные ключи в порядке кошельков.
func PublicKeys(wallets []*Wallet) []solana.PublicKey {
	keys := make([]solana.PublicKey, len(wallets))
	for i, w := range wallets {
		keys[i] = w.PublicKey
	}
	return keys
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

// Keyring хранит приватные ключи подписантов бандла.
type Keyring struct {
	mu   sync.RWMutex
	keys map[solana.PublicKey]solana.PrivateKey
}

// NewKeyring создаёт keyring из кошельков.
func NewKeyring(wallets ...*Wallet) *Keyring {
	k := &Keyring{keys: make(map[solana.PublicKey]solana.PrivateKey, len(wallets))}
	for _, w := range wallets {
		k.keys[w.PublicKey] = w.PrivateKey
	}
	return k
}

// Add добавляет ключ, например keypair нового минта.
func (k *Keyring) Add(key solana.PrivateKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[key.PublicKey()] = key
}

// PrivateKey возвращает ключ или nil, если его нет.
func (k *Keyring) PrivateKey(pub solana.PublicKey) *solana.PrivateKey {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[pub]
	if !ok {
		return nil
	}
	return &key
}

// Len количество ключей.
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}
