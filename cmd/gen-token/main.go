// Command gen-token prints a bearer token for a server running with
// AUTH_MODE=hs256.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/api"
)

func main() {
	var (
		subject = flag.String("sub", os.Getenv("AUTH_OWNER"), "token subject; defaults to AUTH_OWNER")
		ttl     = flag.Duration("ttl", time.Hour, "token lifetime")
		output  = flag.String("output", "", "also write the token to this file")
	)
	flag.Parse()

	secret := os.Getenv("AUTH_SHARED_SECRET")
	if secret == "" {
		log.Fatal("AUTH_SHARED_SECRET must be set")
	}
	if *ttl <= 0 {
		log.Fatal("ttl must be positive")
	}

	token, err := api.SignSharedSecretToken([]byte(secret), *subject, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	if *output != "" {
		if err := os.WriteFile(*output, []byte(token+"\n"), 0o600); err != nil {
			log.Fatalf("write token: %v", err)
		}
	}
	fmt.Print(token)
}
