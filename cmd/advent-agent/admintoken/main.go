// Command admintoken issues a bearer token for the agent's admin API.
//
//	go run ./cmd/advent-agent/admintoken -config config.yaml -subject ops@example.com
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chainsafe/advent-agent/pkg/auth"
	"github.com/chainsafe/advent-agent/pkg/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	subject := flag.String("subject", "operator", "Token subject recorded in admin request logs")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	validator := auth.NewJWTValidator(cfg.Admin.JWTSecret, cfg.Admin.Issuer)
	token, err := validator.IssueToken(*subject, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintf(os.Stderr, "  curl -X POST -H \"Authorization: Bearer %s\" http://%s:%d/api/v1/admin/sweeps\n",
		token, cfg.Server.Host, cfg.Server.Port)
}
