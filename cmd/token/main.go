// Command token mints an access token for a user so operators can call the
// booking and admin routes.  It reads JWT_SECRET and ACCESS_TOKEN_TTL_MIN
// from the same environment as the server.
//
//	token -user 42 -role ADMIN
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

func main() {
	cfg := config.Load()
	if err := run(os.Args[1:], cfg.JWTSecret, cfg.AccessTTLMin, os.Stdout); err != nil {
		log.Fatalf("token: %v", err)
	}
}

func run(args []string, secret string, defaultTTL int, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userID := fs.Uint64("user", 0, "user id placed in the sub claim")
	role := fs.String("role", model.RoleCustomer, "CUSTOMER or ADMIN")
	ttl := fs.Int("ttl", defaultTTL, "lifetime in minutes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == 0 {
		return errors.New("-user is required")
	}
	if *role != model.RoleCustomer && *role != model.RoleAdmin {
		return fmt.Errorf("unknown role %q", *role)
	}
	if *ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %d", *ttl)
	}

	tok, err := utils.NewAccessToken(secret, *userID, *role, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\nexpires %s\n", tok.Token, tok.Exp.Format(time.RFC3339))
	return err
}
