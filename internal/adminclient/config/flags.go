package config

import (
	"flag"
	"os"

	"github.com/evidencevault/vault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Args are filtered with flagx.FilterArgs first so the admin CLI's own
// subcommand argument parsing never sees these global flags.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-url", "-key", "-secret", "-c", "-config"})

	fs := flag.NewFlagSet("admincli", flag.ContinueOnError)
	fs.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the vault server")
	fs.StringVar(&cfg.AppKey, "key", cfg.AppKey, "HMAC application key")
	fs.StringVar(&cfg.AppSecret, "secret", cfg.AppSecret, "HMAC application secret")
	fs.String("c", "", "path to a JSON config file")
	fs.String("config", "", "path to a JSON config file")

	_ = fs.Parse(args)
}
