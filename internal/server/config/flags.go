package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/usersecrets/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g. ":3000")
//	-d string     PostgreSQL DSN
//	-s string     session signing secret
//	-t duration   session lifetime (e.g. "24h")
//	-r string     Redis address; also switches the session store to redis
//	-l string     log level
//
// Only these flags are looked at, so -c/-config and flags owned by other
// parsers do not cause errors.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-r", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session signing secret")
	fs.DurationVar(&config.SessionTTL, "t", config.SessionTTL, "session lifetime")
	redisAddr := fs.String("r", "", "redis address for the session store")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *redisAddr != "" {
		config.RedisAddr = *redisAddr
		config.SessionStore = SessionStoreRedis
	}
	return nil
}
