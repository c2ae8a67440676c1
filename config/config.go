// Package config loads client settings from flags, the environment and
// .env files, and turns them into mongokv.Options.
//
// Every key can be set as a flag (--conn-string) or as an environment
// variable with the MONGOKV_ prefix (MONGOKV_CONN_STRING).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/mongokv"
	"github.com/unkn0wn-root/mongokv/codec"
	"github.com/unkn0wn-root/mongokv/compress"
	"github.com/unkn0wn-root/mongokv/genstore"
	"github.com/unkn0wn-root/mongokv/provider"
	"github.com/unkn0wn-root/mongokv/provider/bigcache"
	redisprovider "github.com/unkn0wn-root/mongokv/provider/redis"
	"github.com/unkn0wn-root/mongokv/provider/ristretto"
	"github.com/unkn0wn-root/mongokv/store"
)

const EnvPrefix = "mongokv"

// Keys
const (
	KeyConnString     = "conn-string"
	KeyDatabase       = "database"
	KeyCollection     = "collection"
	KeyPrefix         = "prefix"
	KeyCodec          = "codec"
	KeyCompression    = "compression"
	KeyCompressor     = "compressor"
	KeyConnectTimeout = "connect-timeout"
	KeyAppName        = "app-name"
	KeyNearCache      = "near-cache"
	KeyNearTTL        = "near-ttl"
	KeyNearMaxMB      = "near-max-mb"
	KeyRedisAddr      = "redis-addr"
	KeyLogLevel       = "log-level"
)

type Config struct {
	ConnString     string
	Database       string
	Collection     string
	Prefix         string
	Codec          string // json, msgpack, cbor, bytes, protobuf
	Compression    bool
	Compressor     string // gzip, zstd, s2, lz4
	ConnectTimeout time.Duration
	AppName        string

	// NearCache selects the near-cache provider: "" (off), ristretto,
	// bigcache or redis. With redis, generations are shared through the
	// same server so writes from any process invalidate all of them.
	NearCache string
	NearTTL   time.Duration
	NearMaxMB int
	RedisAddr string

	LogLevel string
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyConnString, "mongodb://localhost:27017")
	v.SetDefault(KeyDatabase, "kvstore")
	v.SetDefault(KeyCollection, "KeyValue")
	v.SetDefault(KeyCodec, "json")
	v.SetDefault(KeyCompressor, "gzip")
	v.SetDefault(KeyConnectTimeout, 10*time.Second)
	v.SetDefault(KeyAppName, "mongokv")
	v.SetDefault(KeyNearTTL, time.Minute)
	v.SetDefault(KeyNearMaxMB, 64)
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyLogLevel, "info")
}

// Init loads .env and .env.local (missing files are fine) and makes v read
// MONGOKV_* environment variables.
func Init(v *viper.Viper) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// BindFlags lets flags override environment and defaults.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	return v.BindPFlags(fs)
}

// Load reads a Config from v.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		ConnString:     v.GetString(KeyConnString),
		Database:       v.GetString(KeyDatabase),
		Collection:     v.GetString(KeyCollection),
		Prefix:         v.GetString(KeyPrefix),
		Codec:          strings.ToLower(v.GetString(KeyCodec)),
		Compression:    v.GetBool(KeyCompression),
		Compressor:     strings.ToLower(v.GetString(KeyCompressor)),
		ConnectTimeout: v.GetDuration(KeyConnectTimeout),
		AppName:        v.GetString(KeyAppName),
		NearCache:      strings.ToLower(v.GetString(KeyNearCache)),
		NearTTL:        v.GetDuration(KeyNearTTL),
		NearMaxMB:      v.GetInt(KeyNearMaxMB),
		RedisAddr:      v.GetString(KeyRedisAddr),
		LogLevel:       strings.ToLower(v.GetString(KeyLogLevel)),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.ConnString == "" {
		return fmt.Errorf("config: %s is required", KeyConnString)
	}
	if _, err := codec.ByName(c.Codec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Compression {
		switch c.Compressor {
		case "", "gzip", "zstd", "s2", "lz4":
		default:
			return fmt.Errorf("config: unknown compressor %q", c.Compressor)
		}
	}
	switch c.NearCache {
	case "", "ristretto", "bigcache", "redis":
	default:
		return fmt.Errorf("config: unknown near cache %q", c.NearCache)
	}
	if c.NearCache != "" && c.NearTTL <= 0 {
		return fmt.Errorf("config: %s must be positive", KeyNearTTL)
	}
	return nil
}

// ClientOptions resolves codec, compressor and near-cache names. The caller
// supplies the backend (store/mongo in production) plus logging and hooks.
func (c Config) ClientOptions(backend store.Backend) (mongokv.Options, error) {
	opts := mongokv.Options{
		Backend:      backend,
		ConnString:   c.ConnString,
		Database:     c.Database,
		Collection:   c.Collection,
		Prefix:       c.Prefix,
		Compression:  c.Compression,
		NearCacheTTL: c.NearTTL,
	}

	cd, err := codec.ByName(c.Codec)
	if err != nil {
		return opts, err
	}
	opts.Codec = cd

	if c.Compression {
		cp, err := compress.ByName(c.Compressor)
		if err != nil {
			return opts, err
		}
		opts.Compressor = cp
	}

	p, gens, err := c.nearCache()
	if err != nil {
		return opts, err
	}
	opts.NearCache, opts.GenStore = p, gens
	return opts, nil
}

func (c Config) nearCache() (provider.Provider, genstore.GenStore, error) {
	maxBytes := int64(c.NearMaxMB) << 20
	switch c.NearCache {
	case "":
		return nil, nil, nil
	case "ristretto":
		p, err := ristretto.New(ristretto.Config{
			NumCounters: maxBytes / 100, // assumes ~1KB entries, 10x counters
			MaxCost:     maxBytes,
			BufferItems: 64,
		})
		return p, nil, err
	case "bigcache":
		p, err := bigcache.New(bigcache.Config{
			LifeWindow:         c.NearTTL,
			HardMaxCacheSizeMB: c.NearMaxMB,
		})
		return p, nil, err
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: c.RedisAddr})
		p, err := redisprovider.New(redisprovider.Config{Client: rdb, CloseClient: true})
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		gens := genstore.NewRedisGenStore(genstore.RedisConfig{
			Client: rdb,
			Prefix: c.AppName,
			TTL:    24 * time.Hour,
		})
		return p, gens, nil
	default:
		return nil, nil, fmt.Errorf("config: unknown near cache %q", c.NearCache)
	}
}
