// Package cli implements the mongokv command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/mongokv"
	"github.com/unkn0wn-root/mongokv/config"
	zaplog "github.com/unkn0wn-root/mongokv/log/zap"
	"github.com/unkn0wn-root/mongokv/store"
	"github.com/unkn0wn-root/mongokv/store/mongo"
)

const Version = "0.1.0"

// Wrap is the number of characters flag help is wrapped at.
const Wrap = 50

type app struct {
	v       *viper.Viper
	kv      *mongokv.Client
	zl      *zap.Logger
	backend func(config.Config) store.Backend
}

// newApp holds one run's client. Each app has its own viper instance.
func newApp(backend func(config.Config) store.Backend) *app {
	return &app{v: viper.New(), backend: backend}
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newApp(mongoBackend).execute(nil); err != nil {
		os.Exit(1)
	}
}

// execute runs the command tree and closes the client whether or not the
// command succeeded. nil args means os.Args.
func (a *app) execute(args []string, opts ...func(*cobra.Command)) error {
	root := a.rootCmd()
	if args != nil {
		root.SetArgs(args)
	}
	for _, o := range opts {
		o(root)
	}
	err := root.Execute()
	return errors.Join(err, a.close(context.Background()))
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mongokv",
		Short: "key-value operations on a MongoDB collection",
		Long: fmt.Sprintf(`mongokv (v%s)

Reads and writes values stored as {_id, Data} documents. Reads go to any
node, writes and get --for-write go through the replica set primary.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	fs := root.PersistentFlags()
	fs.String(config.KeyConnString, "mongodb://localhost:27017", wrap("MongoDB connection string (any-node target)"))
	fs.String(config.KeyDatabase, "kvstore", wrap("database name"))
	fs.String(config.KeyCollection, "KeyValue", wrap("collection name"))
	fs.String(config.KeyPrefix, "", wrap("prefix prepended to the collection name, e.g. a tenant key"))
	fs.String(config.KeyCodec, "json", wrap("codec (json, msgpack, cbor, bytes, protobuf)"))
	fs.Bool(config.KeyCompression, false, wrap("compress payloads"))
	fs.String(config.KeyCompressor, "gzip", wrap("compressor (gzip, zstd, s2, lz4)"))
	fs.Duration(config.KeyConnectTimeout, 0, wrap("connect and server selection timeout"))
	fs.String(config.KeyLogLevel, "info", wrap("log level (debug, info, warn, error)"))

	root.AddCommand(
		a.getCmd(),
		a.addCmd(),
		a.rmCmd(),
		a.rmAllCmd(),
		a.keysCmd(),
		a.sizesCmd(),
		a.sizeCmd(),
		a.pingCmd(),
		a.topologyCmd(),
		a.metricsCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	config.Init(a.v)
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	zl, err := newZap(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.zl = zl

	opts, err := cfg.ClientOptions(a.backend(cfg))
	if err != nil {
		return err
	}
	opts.Logger = zaplog.New(zl)
	a.kv, err = mongokv.New(opts)
	return err
}

func (a *app) close(ctx context.Context) error {
	if a.kv == nil {
		return nil
	}
	err := a.kv.Close(ctx)
	_ = a.zl.Sync()
	return err
}

func newZap(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func mongoBackend(c config.Config) store.Backend {
	return mongo.New(mongo.Config{AppName: c.AppName, ConnectTimeout: c.ConnectTimeout})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mongokv",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mongokv v%s\n", Version)
		},
	}
}

// wrap wraps help text at Wrap characters.
func wrap(text string) string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > Wrap {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return strings.Join(lines, "\n")
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
