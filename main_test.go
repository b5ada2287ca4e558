package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"server_config": {"host": "0.0.0.0", "port": 8080},
		"provider_config": {"base_url": "https://api.facetec.example", "timeout_seconds": 10, "max_retries": 3},
		"storage_type": "memory",
		"log_level": "debug"
	}`)

	config, err := readConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", config.ServerConfig.Host)
	require.Equal(t, 8080, config.ServerConfig.Port)
	require.Equal(t, "https://api.facetec.example", config.ProviderConfig.BaseUrl)
	require.Equal(t, 10, config.ProviderConfig.TimeoutSeconds)
	require.Equal(t, 3, config.ProviderConfig.MaxRetries)
	require.Equal(t, "memory", config.StorageType)
	require.Equal(t, "debug", config.LogLevel)
}

func TestReadConfigFile_Missing(t *testing.T) {
	_, err := readConfigFile("./does-not-exist.json")
	require.Error(t, err)
}

func TestReadConfigFile_Malformed(t *testing.T) {
	path := writeConfigFile(t, "{not json")
	_, err := readConfigFile(path)
	require.Error(t, err)
}

func TestCreateAuditStore_Memory(t *testing.T) {
	store, err := createAuditStore(&Config{StorageType: "memory"})
	require.NoError(t, err)
	require.IsType(t, &InMemoryAuditStore{}, store)
}

func TestCreateAuditStore_DisabledByDefault(t *testing.T) {
	store, err := createAuditStore(&Config{})
	require.NoError(t, err)
	require.IsType(t, NoopAuditStore{}, store)
}

func TestCreateAuditStore_InvalidType(t *testing.T) {
	_, err := createAuditStore(&Config{StorageType: "carrier-pigeon"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a valid storage type")
}

func TestCreateAttestor_DisabledWithoutKey(t *testing.T) {
	attestor, err := createAttestor(&Config{})
	require.NoError(t, err)
	require.Nil(t, attestor)
}

func TestCreateAttestor_MissingKeyFile(t *testing.T) {
	_, err := createAttestor(&Config{JwtPrivateKeyPath: "./does-not-exist.pem"})
	require.Error(t, err)
}
