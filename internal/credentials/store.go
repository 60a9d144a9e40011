package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	pathutils "github.com/temirov/auditdesk/internal/utils/path"
)

const (
	credentialsFilePermissionsConstant      = 0o600
	credentialsDirectoryPermissionsConstant = 0o700
	readFailureTemplateConstant             = "unable to read credentials file %s: %w"
	decodeFailureTemplateConstant           = "unable to decode credentials file %s: %w"
	encodeFailureTemplateConstant           = "unable to encode credentials: %w"
	writeFailureTemplateConstant            = "unable to write credentials file %s: %w"
	removeFailureTemplateConstant           = "unable to remove credentials file %s: %w"
	directoryFailureTemplateConstant        = "unable to create credentials directory %s: %w"
	credentialsPathMissingMessageConstant   = "credentials file path not configured"
)

// ErrCredentialsPathNotConfigured indicates the file store was constructed without a path.
var ErrCredentialsPathNotConfigured = errors.New(credentialsPathMissingMessageConstant)

// Tokens is the persisted token pair plus the admin view preference.
type Tokens struct {
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
	ViewAsUser   bool   `yaml:"view_as_user,omitempty"`
}

// Empty reports whether no access token is stored.
func (tokens Tokens) Empty() bool {
	return len(strings.TrimSpace(tokens.AccessToken)) == 0
}

// Store loads and saves token pairs.
type Store interface {
	Load() (Tokens, error)
	Save(tokens Tokens) error
	Clear() error
}

// FileStore keeps tokens in a YAML file readable only by the current user.
type FileStore struct {
	filePath string
}

// NewFileStore constructs a FileStore, expanding a leading tilde in the path.
func NewFileStore(filePath string, expander *pathutils.HomeExpander) (*FileStore, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return nil, ErrCredentialsPathNotConfigured
	}
	if expander == nil {
		expander = pathutils.NewHomeExpander()
	}
	return &FileStore{filePath: filepath.Clean(expander.Expand(trimmedPath))}, nil
}

// Path reports the resolved credentials file location.
func (store *FileStore) Path() string {
	return store.filePath
}

// Load reads the persisted tokens; a missing file yields empty tokens.
func (store *FileStore) Load() (Tokens, error) {
	contents, readError := os.ReadFile(store.filePath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf(readFailureTemplateConstant, store.filePath, readError)
	}

	var tokens Tokens
	if decodeError := yaml.Unmarshal(contents, &tokens); decodeError != nil {
		return Tokens{}, fmt.Errorf(decodeFailureTemplateConstant, store.filePath, decodeError)
	}
	return tokens, nil
}

// Save writes the tokens, creating the parent directory when needed.
func (store *FileStore) Save(tokens Tokens) error {
	encoded, encodeError := yaml.Marshal(tokens)
	if encodeError != nil {
		return fmt.Errorf(encodeFailureTemplateConstant, encodeError)
	}

	directory := filepath.Dir(store.filePath)
	if directoryError := os.MkdirAll(directory, credentialsDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(directoryFailureTemplateConstant, directory, directoryError)
	}

	if writeError := os.WriteFile(store.filePath, encoded, credentialsFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(writeFailureTemplateConstant, store.filePath, writeError)
	}
	return os.Chmod(store.filePath, credentialsFilePermissionsConstant)
}

// Clear removes the credentials file; a missing file is not an error.
func (store *FileStore) Clear() error {
	removeError := os.Remove(store.filePath)
	if removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
		return fmt.Errorf(removeFailureTemplateConstant, store.filePath, removeError)
	}
	return nil
}

// MemoryStore keeps tokens in process memory.
type MemoryStore struct {
	mutex  sync.Mutex
	tokens Tokens
}

// NewMemoryStore constructs a MemoryStore seeded with the provided tokens.
func NewMemoryStore(initial Tokens) *MemoryStore {
	return &MemoryStore{tokens: initial}
}

// Load returns the stored tokens.
func (store *MemoryStore) Load() (Tokens, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.tokens, nil
}

// Save replaces the stored tokens.
func (store *MemoryStore) Save(tokens Tokens) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.tokens = tokens
	return nil
}

// Clear forgets the stored tokens.
func (store *MemoryStore) Clear() error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.tokens = Tokens{}
	return nil
}
