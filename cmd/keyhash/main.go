// Command keyhash prepares gateway credentials. By default it prints the
// bcrypt hash of a gateway key for auth.gateway_key_hash; with --jwt it mints
// an HS256 bearer token for a subject, signed with auth.jwt_secret.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/phrazzld/pulseweave/internal/service/auth"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "keyhash: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	flags := pflag.NewFlagSet("keyhash", pflag.ContinueOnError)
	key := flags.String("key", "", "gateway key to hash (read from stdin when empty)")
	cost := flags.Int("cost", 0, "bcrypt cost (0 uses the default)")
	mint := flags.Bool("jwt", false, "mint a bearer token instead of hashing a key")
	secret := flags.String("secret", os.Getenv("PULSEWEAVE_AUTH_JWT_SECRET"), "JWT signing secret")
	subject := flags.String("subject", "", "token subject")
	lifetime := flags.Duration("lifetime", 24*time.Hour, "token lifetime (0 for no expiry)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *mint {
		if *subject == "" {
			return errors.New("--subject is required with --jwt")
		}
		svc, err := auth.NewJWTService(*secret)
		if err != nil {
			return err
		}
		token, err := svc.GenerateToken(context.Background(), *subject, *lifetime)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, token)
		return err
	}

	if *key == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read key: %w", err)
		}
		*key = strings.TrimSpace(line)
	}
	if *key == "" {
		return errors.New("a non-empty key is required")
	}

	hash, err := auth.HashKey(*key, *cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
