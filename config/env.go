package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "plantsDB"
	defaultDomainURL     = "http://localhost:5173"
	defaultRedisAddr     = "localhost:6379"
	defaultAppPort       = "3000"
	defaultGRPCPort      = "50051"
	defaultAppEnv        = "local"
	defaultCurrency      = "usd"
	defaultStoreDriver   = "mongo"
	defaultQueueDriver   = "memory"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json, then .env, then the process environment.
// Later sources win. Only the first call does any work.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"MONGODB_URI":      defaultMongoURI,
		"MONGODB_DATABASE": defaultMongoDatabase,
		"DOMAIN_URL":       defaultDomainURL,
		"STRIPE_SECRET":    "",
		"FB_SERVICE_KEY":   "",
		"PORT":             defaultAppPort,
		"GRPC_PORT":        defaultGRPCPort,
		"APP_ENV":          defaultAppEnv,
		"CURRENCY":         defaultCurrency,
		"REDIS_ADDR":       defaultRedisAddr,
		"REDIS_PASSWORD":   "",
		"KAFKA_BROKERS":    "",
		"STORE_DRIVER":     defaultStoreDriver,
		"QUEUE_DRIVER":     defaultQueueDriver,
	}
}

// ── Core ─────────────────────────────────────────────────────────────────────

func MongoURI() string {
	_ = Load()
	return get("MONGODB_URI", defaultMongoURI)
}

func MongoDatabase() string {
	_ = Load()
	return get("MONGODB_DATABASE", defaultMongoDatabase)
}

// DomainURL is the storefront origin. Checkout redirect URLs and the CORS
// allow-list are derived from it.
func DomainURL() string {
	_ = Load()
	return strings.TrimRight(get("DOMAIN_URL", defaultDomainURL), "/")
}

func StripeSecret() string {
	_ = Load()
	return get("STRIPE_SECRET", "")
}

// FirebaseServiceKey returns the base64-encoded service account JSON.
func FirebaseServiceKey() string {
	_ = Load()
	return get("FB_SERVICE_KEY", "")
}

func FirebaseProjectID() string {
	_ = Load()
	return get("FIREBASE_PROJECT_ID", "")
}

func AppPort() string {
	_ = Load()
	return get("PORT", defaultAppPort)
}

func GRPCPort() string {
	_ = Load()
	return get("GRPC_PORT", defaultGRPCPort)
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

func IsProduction() bool {
	switch strings.ToLower(AppEnv()) {
	case "production", "prod":
		return true
	}
	return false
}

func Currency() string {
	_ = Load()
	return strings.ToLower(get("CURRENCY", defaultCurrency))
}

// StoreDriver selects the persistence backend: "mongo" or "memory".
func StoreDriver() string {
	_ = Load()

	driver := strings.ToLower(get("STORE_DRIVER", defaultStoreDriver))
	switch driver {
	case "mongo", "memory":
		return driver
	default:
		return defaultStoreDriver
	}
}

// ── Infrastructure ───────────────────────────────────────────────────────────

func RedisAddr() string {
	_ = Load()
	return get("REDIS_ADDR", defaultRedisAddr)
}

func RedisPassword() string {
	_ = Load()
	return get("REDIS_PASSWORD", "")
}

// KafkaBrokers returns the configured broker list; empty disables publishing.
func KafkaBrokers() []string {
	_ = Load()
	raw := get("KAFKA_BROKERS", "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func QueueDriver() string {
	_ = Load()
	return strings.ToLower(get("QUEUE_DRIVER", defaultQueueDriver))
}

func QueueWorkers() int { return Int("QUEUE_WORKERS", 2) }

func LogToMongo() bool { return Bool("LOG_TO_MONGO", false) }

// CatalogCacheTTL is how long plant listings stay in Redis.
func CatalogCacheTTL() time.Duration {
	return time.Duration(Int("CATALOG_CACHE_SECONDS", 60)) * time.Second
}

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDefault() string {
	_ = Load()
	return get("STORAGE_DISK", "local")
}

func StorageLocalRoot() string {
	_ = Load()
	return get("STORAGE_LOCAL_ROOT", "storage")
}

func StorageURL() string {
	_ = Load()
	return get("STORAGE_URL", "http://localhost:"+AppPort()+"/storage")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// ── Loading ──────────────────────────────────────────────────────────────────

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mergeEnviron(os.Environ(), loaded)

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(v)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// FB_SERVICE_KEY is a base64 blob that easily exceeds the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func mergeEnviron(environ []string, out map[string]string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		out[strings.ToUpper(key)] = value
	}
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Int reads key as an integer, returning fallback when unset or malformed.
func Int(key string, fallback int) int {
	n, err := strconv.Atoi(Get(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

// Bool reads key as a boolean, returning fallback when unset or malformed.
func Bool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(Get(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

// Set overrides a key for the rest of the process lifetime. Used by tests
// and by CLI flags that shadow environment settings.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	values[strings.ToUpper(key)] = value
	mu.Unlock()
}
