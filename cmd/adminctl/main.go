// Command adminctl manages identities of the local provider, e.g. to
// bootstrap the first administrator or remove an identity left orphaned
// by a failed deprovision.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/storefront-admin/internal/config"
	"github.com/iliyamo/storefront-admin/internal/database"
	"github.com/iliyamo/storefront-admin/internal/identity"
	"github.com/iliyamo/storefront-admin/internal/repository"
)

const usage = `usage:
  adminctl create-identity -email EMAIL -password PASSWORD
  adminctl delete-identity -id IDENTITY_ID`

func main() {
	if len(os.Args) < 2 {
		fail(usage)
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fail("config: " + err.Error())
	}
	if cfg.IdentityProvider != config.ProviderLocal {
		fail("adminctl only manages the local identity provider")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		fail("open database: " + err.Error())
	}
	defer db.Close()

	local := identity.NewLocal(repository.NewIdentityRepo(db), repository.NewSessionRepo(db), identity.LocalConfig{
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL,
		BcryptCost:    cfg.BcryptCost,
	})

	switch os.Args[1] {
	case "create-identity":
		fs := flag.NewFlagSet("create-identity", flag.ExitOnError)
		email := fs.String("email", "", "identity email")
		password := fs.String("password", "", "initial password")
		_ = fs.Parse(os.Args[2:])
		if *email == "" || *password == "" {
			fail(usage)
		}
		ident, err := local.CreateIdentity(ctx, *email, *password)
		if err != nil {
			fail("create identity: " + err.Error())
		}
		fmt.Printf("created identity %s (%s)\n", ident.ID, ident.Email)
	case "delete-identity":
		fs := flag.NewFlagSet("delete-identity", flag.ExitOnError)
		id := fs.String("id", "", "identity id")
		_ = fs.Parse(os.Args[2:])
		if *id == "" {
			fail(usage)
		}
		if err := local.DeleteIdentity(ctx, *id); err != nil {
			fail("delete identity: " + err.Error())
		}
		fmt.Printf("deleted identity %s\n", *id)
	default:
		fail(usage)
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
