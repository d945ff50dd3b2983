// Command kycctl issues tokens, seeds a ledger and calls a running ekyc server.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"

	jwttoken "ekyc/internal/jwt_token"
	"ekyc/internal/kyc/bootstrap"
	"ekyc/internal/kyc/service"
	"ekyc/internal/ledger/backend"
	"ekyc/internal/platform/config"
	"ekyc/internal/platform/logger"
	"ekyc/internal/platform/redis"
	id "ekyc/pkg/domain"
)

var flagServer = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "ekyc server base URL",
	EnvVars: []string{"EKYC_SERVER"},
}

var flagToken = &cli.StringFlag{
	Name:    "token",
	Usage:   "bearer token for the calling institution",
	EnvVars: []string{"EKYC_TOKEN"},
}

var flagAdminToken = &cli.StringFlag{
	Name:    "admin-token",
	Usage:   "operator token sent as X-Admin-Token",
	EnvVars: []string{"EKYC_ADMIN_TOKEN"},
}

var flagTimeout = &cli.DurationFlag{
	Name:  "timeout",
	Value: 30 * time.Second,
}

func main() {
	app := &cli.App{
		Name:  "kycctl",
		Usage: "operate an ekyc ledger",
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "issue an access token for an institution",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "principal", Required: true, Usage: "institution id, e.g. FI1"},
					&cli.StringFlag{Name: "signing-key", EnvVars: []string{"EKYC_JWT_SIGNING_KEY"}, Required: true},
					&cli.StringFlag{Name: "issuer", Value: "ekyc", EnvVars: []string{"EKYC_JWT_ISSUER"}},
					&cli.StringFlag{Name: "audience", Value: "ekyc-api", EnvVars: []string{"EKYC_JWT_AUDIENCE"}},
					&cli.DurationFlag{Name: "ttl", Value: time.Hour},
				},
				Action: func(cCtx *cli.Context) error {
					principal, err := id.ParseInstitutionID(cCtx.String("principal"))
					if err != nil {
						return err
					}
					svc := jwttoken.NewJWTService(cCtx.String("signing-key"), cCtx.String("issuer"), cCtx.String("audience"))
					token, err := svc.GenerateAccessToken(principal, cCtx.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
			{
				Name:      "hash-admin-token",
				Usage:     "print the bcrypt hash to set as EKYC_ADMIN_TOKEN_HASH",
				ArgsUsage: "<token>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one token argument", 2)
					}
					hash, err := bcrypt.GenerateFromPassword([]byte(cCtx.Args().First()), bcrypt.DefaultCost)
					if err != nil {
						return err
					}
					fmt.Println(string(hash))
					return nil
				},
			},
			{
				Name:        "bootstrap",
				Usage:       "load a seed file into the ledger configured by EKYC_* variables",
				Description: "Runs offline against the ledger. Staged audit entries are relayed by the next server start.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "seed", Required: true, Usage: "path to the YAML seed"},
				},
				Action: func(cCtx *cli.Context) error {
					cfg := config.FromEnv()
					if err := cfg.Validate(); err != nil {
						return err
					}
					ctx := cCtx.Context
					appLogger := logger.New(cfg.LogLevel, "text")

					seed, err := bootstrap.Load(cCtx.String("seed"))
					if err != nil {
						return err
					}
					rdb, err := redis.New(ctx, cfg.Redis)
					if err != nil {
						return err
					}
					if rdb != nil {
						defer func() { _ = rdb.Close() }()
					}
					store, err := backend.Open(ctx, cfg, rdb, appLogger)
					if err != nil {
						return err
					}
					defer func() { _ = store.Close() }()

					res, err := bootstrap.Apply(ctx, service.New(store, service.WithLogger(appLogger)), seed, appLogger)
					if err != nil {
						return err
					}
					if res.Skipped {
						fmt.Println("ledger already holds institutions, nothing written")
						return nil
					}
					fmt.Printf("registered %d institutions and %d clients\n", len(res.Institutions), len(res.Clients))
					return nil
				},
			},
			{
				Name:      "invoke",
				Usage:     "call a named operation on the server",
				ArgsUsage: "<function> [args...]",
				Flags:     []cli.Flag{flagServer, flagToken, flagTimeout},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() < 1 {
						return cli.Exit("expected a function name", 2)
					}
					client := newAPIClient(cCtx.String(flagServer.Name), cCtx.String(flagToken.Name), "", cCtx.Duration(flagTimeout.Name))
					out, err := client.Invoke(cCtx.Context, cCtx.Args().First(), cCtx.Args().Tail())
					if err != nil {
						return err
					}
					fmt.Println(string(out))
					return nil
				},
			},
			{
				Name:      "revoke-token",
				Usage:     "revoke an access token before it expires (operator only)",
				ArgsUsage: "<token>",
				Flags:     []cli.Flag{flagServer, flagAdminToken, flagTimeout},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one token argument", 2)
					}
					client := newAPIClient(cCtx.String(flagServer.Name), "", cCtx.String(flagAdminToken.Name), cCtx.Duration(flagTimeout.Name))
					return client.RevokeToken(cCtx.Context, cCtx.Args().First())
				},
			},
			{
				Name:  "query",
				Usage: "list every record of a document type (operator only)",
				Flags: []cli.Flag{
					flagServer, flagAdminToken, flagTimeout,
					&cli.StringFlag{Name: "type", Value: string(id.DocTypeClient), Usage: "client or institution"},
				},
				Action: func(cCtx *cli.Context) error {
					client := newAPIClient(cCtx.String(flagServer.Name), "", cCtx.String(flagAdminToken.Name), cCtx.Duration(flagTimeout.Name))
					out, err := client.QueryAll(cCtx.Context, cCtx.String("type"))
					if err != nil {
						return err
					}
					fmt.Println(string(out))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
