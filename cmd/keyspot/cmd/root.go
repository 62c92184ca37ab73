package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corey/keyspot/internal/adapters/postgres"
	"github.com/corey/keyspot/internal/adapters/socket"
	"github.com/corey/keyspot/internal/app"
	"github.com/corey/keyspot/internal/domain/fragment"
	"github.com/corey/keyspot/internal/domain/recognizer"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "keyspot",
	Short: "keyspot ⚡ multi-keyword spotting",
	Long: "Finds every occurrence of every keyword in a text in one pass, using an\n" +
		"Aho-Corasick automaton. Runs one-shot or as a daemon on a Unix socket and HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/keyspot/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "debug logging")
	pf.String("home", "", "keyspot home directory (default is $HOME/.keyspot)")
	pf.StringP("keywords", "k", "", "keyword file (.txt or .yaml)")
	pf.String("source", "", "keyword source: file, embedded, bbolt, postgres")
	pf.String("set", "", "keyword set name in the bbolt store")
	pf.String("engine", recognizer.NativeEngine, "matcher engine: native or library")
	pf.Bool("fold-case", true, "match case-insensitively")

	bindFlag("home", "home")
	bindFlag("keywords.file", "keywords")
	bindFlag("keywords.source", "source")
	bindFlag("keywords.set", "set")
	bindFlag("engine", "engine")
	bindFlag("keywords.fold_case", "fold-case")

	setDefaults()

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(fragmentsCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(configCmd)
}

func bindFlag(key, flag string) {
	cobra.CheckErr(viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)))
}

func setDefaults() {
	viper.SetDefault("keywords.fold_case", true)
	viper.SetDefault("engine", recognizer.NativeEngine)
	viper.SetDefault("postgres.table", postgres.DefaultTable)
	viper.SetDefault("postgres.column", postgres.DefaultColumn)
	viper.SetDefault("fragment.joiner", fragment.DefaultJoiner)
	viper.SetDefault("fragment.min_length", fragment.DefaultMinLength)
	viper.SetDefault("daemon.http_port", 0)
	viper.SetDefault("daemon.watch", true)
	viper.SetDefault("log.level", "info")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "keyspot"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("KEYSPOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			cobra.CheckErr(fmt.Errorf("read config: %w", err))
		}
		return
	}
	logrus.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
}

// setupLogging applies log.level, or debug when --debug is set.
func setupLogging() error {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		return nil
	}
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	logrus.SetLevel(level)
	return nil
}

// homeDir returns the configured keyspot home.
func homeDir() string {
	if h := viper.GetString("home"); h != "" {
		return h
	}
	return app.DefaultHome()
}

// socketPath returns the daemon socket for the configured home.
func socketPath() string {
	if p := viper.GetString("daemon.socket"); p != "" {
		return p
	}
	return socket.SocketPath(homeDir())
}

// appConfig resolves the viper configuration into an app.Config.
func appConfig() app.Config {
	return app.Config{
		Source:            viper.GetString("keywords.source"),
		KeywordFile:       viper.GetString("keywords.file"),
		KeywordSet:        viper.GetString("keywords.set"),
		FoldCase:          viper.GetBool("keywords.fold_case"),
		Engine:            viper.GetString("engine"),
		DBPath:            viper.GetString("db.path"),
		PostgresDSN:       viper.GetString("postgres.dsn"),
		PostgresTable:     viper.GetString("postgres.table"),
		PostgresColumn:    viper.GetString("postgres.column"),
		FragmentJoiner:    viper.GetString("fragment.joiner"),
		FragmentMinLength: viper.GetInt("fragment.min_length"),
		SocketPath:        viper.GetString("daemon.socket"),
		HTTPPort:          viper.GetInt("daemon.http_port"),
		Watch:             viper.GetBool("daemon.watch"),
		Home:              homeDir(),
		Logger:            logrus.StandardLogger(),
	}
}

// oneShotConfig is appConfig for in-process commands: no HTTP, no watcher,
// and build chatter kept below the warning level unless debugging.
func oneShotConfig() app.Config {
	cfg := appConfig()
	cfg.HTTPPort = -1
	cfg.Watch = false
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
		cfg.Logger = logger
	}
	return cfg
}
