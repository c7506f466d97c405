// checkin runs one device check-in against the configured endpoint and prints the stored identity,
// or with -issue-caller mints a caller capability token for an app. It reads the same environment
// as the server (DEVICE_PROFILE, DATABASE_URL, CHECKIN_URL, CALLER_JWT_*).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"device-checkin/internal/checkin/domain"
	"device-checkin/internal/checkin/facts"
	"device-checkin/internal/checkin/repository"
	checkinservice "device-checkin/internal/checkin/service"
	"device-checkin/internal/config"
	"device-checkin/internal/db"
	"device-checkin/internal/db/migrate"
	gcmdomain "device-checkin/internal/gcm/domain"
	"device-checkin/internal/security"
	"device-checkin/internal/transport"
)

type accountFlags []domain.AccountCredential

func (a *accountFlags) String() string { return fmt.Sprintf("%d accounts", len(*a)) }

func (a *accountFlags) Set(v string) error {
	name, token, ok := strings.Cut(v, ":")
	if !ok || name == "" {
		return fmt.Errorf("account %q: want name:token", v)
	}
	*a = append(*a, domain.AccountCredential{Name: name, AuthToken: token})
	return nil
}

func main() {
	var accounts accountFlags
	flag.Var(&accounts, "account", "account credential as name:token (repeatable)")
	issue := flag.Bool("issue-caller", false, "issue a caller token instead of checking in")
	pkg := flag.String("package", "", "caller package name (with -issue-caller)")
	certPath := flag.String("cert", "", "caller signing certificate, DER or PEM (with -issue-caller)")
	version := flag.Int("version-code", 0, "caller version code (with -issue-caller)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *issue {
		if err := issueCaller(cfg, *pkg, *certPath, int32(*version)); err != nil {
			fmt.Fprintln(os.Stderr, "issue-caller:", err)
			os.Exit(1)
		}
		return
	}

	if err := runCheckin(context.Background(), cfg, accounts); err != nil {
		fmt.Fprintln(os.Stderr, "checkin:", err)
		os.Exit(1)
	}
}

func runCheckin(ctx context.Context, cfg *config.Config, accounts []domain.AccountCredential) error {
	if cfg.DeviceProfile == "" {
		return fmt.Errorf("DEVICE_PROFILE is required")
	}
	profile, err := facts.NewFileProvider(cfg.DeviceProfile)
	if err != nil {
		return err
	}

	var repo repository.Repository = repository.NewMemoryRepository(domain.DeviceIdentity{})
	if cfg.DatabaseURL != "" {
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		repo = repository.NewSQLRepository(sqlDB)
	}

	client, err := transport.NewClient(cfg.CheckinURL, cfg.RegisterURL, cfg.Timeout())
	if err != nil {
		return err
	}
	id, err := checkinservice.NewService(repo, profile, client, nil).Run(ctx, accounts)
	if err != nil {
		return err
	}
	fmt.Printf("device_id=%d android_id=%x authenticated=%t last_checkin_ms=%d\n",
		id.DeviceID, uint64(id.DeviceID), id.Authenticated(), id.LastCheckinMs)
	return nil
}

func issueCaller(cfg *config.Config, pkg, certPath string, version int32) error {
	if certPath == "" {
		return fmt.Errorf("-cert is required")
	}
	cert, err := os.ReadFile(certPath)
	if err != nil {
		return err
	}
	app := gcmdomain.AppIdentity{PackageName: pkg, SignatureDigest: security.CertificateDigest(cert), VersionCode: version}
	if err := app.Validate(); err != nil {
		return err
	}
	signer, pub, err := security.LoadKeyPair(cfg.CallerJWTPrivateKey, cfg.CallerJWTPublicKey)
	if err != nil {
		return err
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.CallerJWTIssuer, cfg.CallerJWTAudience, cfg.CallerTTL())
	token, exp, err := tokens.IssueCaller(app)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n# expires %s\n", token, exp.UTC().Format("2006-01-02T15:04:05Z"))
	return nil
}
