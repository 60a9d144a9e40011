package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/auditdesk/internal/credentials"
	pathutils "github.com/temirov/auditdesk/internal/utils/path"
)

const (
	testAccessTokenConstant  = "access-token"
	testRefreshTokenConstant = "refresh-token"
	testCredentialsFileName  = "credentials.yaml"
)

func TestFileStoreRoundTrip(testInstance *testing.T) {
	directory := testInstance.TempDir()
	filePath := filepath.Join(directory, "nested", testCredentialsFileName)

	store, creationError := credentials.NewFileStore(filePath, nil)
	require.NoError(testInstance, creationError)

	loaded, loadError := store.Load()
	require.NoError(testInstance, loadError)
	require.True(testInstance, loaded.Empty())

	require.NoError(testInstance, store.Save(credentials.Tokens{AccessToken: testAccessTokenConstant, RefreshToken: testRefreshTokenConstant}))

	fileInfo, statError := os.Stat(filePath)
	require.NoError(testInstance, statError)
	require.Equal(testInstance, os.FileMode(0o600), fileInfo.Mode().Perm())

	loaded, loadError = store.Load()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testAccessTokenConstant, loaded.AccessToken)
	require.Equal(testInstance, testRefreshTokenConstant, loaded.RefreshToken)

	require.NoError(testInstance, store.Clear())
	require.NoError(testInstance, store.Clear())

	loaded, loadError = store.Load()
	require.NoError(testInstance, loadError)
	require.True(testInstance, loaded.Empty())
}

func TestFileStoreExpandsHomeDirectory(testInstance *testing.T) {
	homeDirectory := testInstance.TempDir()
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return homeDirectory, nil })

	store, creationError := credentials.NewFileStore("~/.auditdesk/"+testCredentialsFileName, expander)
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, filepath.Join(homeDirectory, ".auditdesk", testCredentialsFileName), store.Path())
}

func TestFileStoreRejectsEmptyPath(testInstance *testing.T) {
	store, creationError := credentials.NewFileStore("  ", nil)
	require.ErrorIs(testInstance, creationError, credentials.ErrCredentialsPathNotConfigured)
	require.Nil(testInstance, store)
}

func TestFileStoreReportsMalformedFile(testInstance *testing.T) {
	filePath := filepath.Join(testInstance.TempDir(), testCredentialsFileName)
	require.NoError(testInstance, os.WriteFile(filePath, []byte("access_token: [unterminated"), 0o600))

	store, creationError := credentials.NewFileStore(filePath, nil)
	require.NoError(testInstance, creationError)

	_, loadError := store.Load()
	require.Error(testInstance, loadError)
}

func TestMemoryStore(testInstance *testing.T) {
	store := credentials.NewMemoryStore(credentials.Tokens{AccessToken: testAccessTokenConstant})

	loaded, loadError := store.Load()
	require.NoError(testInstance, loadError)
	require.False(testInstance, loaded.Empty())

	require.NoError(testInstance, store.Clear())
	loaded, _ = store.Load()
	require.True(testInstance, loaded.Empty())
}
