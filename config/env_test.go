package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nMONGODB_URI=mongodb://db:27017\nexport DOMAIN_URL=\"https://plants.example\"\nBROKEN\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out := map[string]string{}
	require.NoError(t, mergeDotEnv(path, out))

	assert.Equal(t, "mongodb://db:27017", out["MONGODB_URI"])
	assert.Equal(t, "https://plants.example", out["DOMAIN_URL"])
	assert.NotContains(t, out, "BROKEN")
}

func TestMergeJSONConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 4000, "log_to_mongo": true, "currency": "eur"}`), 0o600))

	out := map[string]string{}
	require.NoError(t, mergeJSONConfig(path, out))

	assert.Equal(t, "4000", out["PORT"])
	assert.Equal(t, "true", out["LOG_TO_MONGO"])
	assert.Equal(t, "eur", out["CURRENCY"])
}

func TestMergeEnvironOverridesFiles(t *testing.T) {
	out := map[string]string{"PORT": "3000", "STRIPE_SECRET": "sk_file"}
	mergeEnviron([]string{"PORT=8081", "STRIPE_SECRET=", "NOEQUALS"}, out)

	assert.Equal(t, "8081", out["PORT"])
	assert.Equal(t, "sk_file", out["STRIPE_SECRET"], "empty env values must not clobber files")
}

func TestKafkaBrokersSplitsList(t *testing.T) {
	Set("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	defer Set("KAFKA_BROKERS", "")

	assert.Equal(t, []string{"a:9092", "b:9092"}, KafkaBrokers())
}

func TestStoreDriverFallsBackToMongo(t *testing.T) {
	Set("STORE_DRIVER", "cassandra")
	defer Set("STORE_DRIVER", "")

	assert.Equal(t, "mongo", StoreDriver())
}

func TestDomainURLTrimsSlash(t *testing.T) {
	Set("DOMAIN_URL", "https://plants.example/")
	defer Set("DOMAIN_URL", "")

	assert.Equal(t, "https://plants.example", DomainURL())
}
