// Command token mints an access token for the operator and manual-ingest routes.
// Credentials live outside this service, so operators issue tokens out of band.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"callsync/internal/auth"
	"callsync/internal/config"
	"callsync/internal/rbac"
)

func main() {
	userID := flag.String("user", "", "user id (sub)")
	agencyID := flag.String("agency", "", "agency id; optional for super_admin")
	role := flag.String("role", rbac.RoleOwner, "owner, manager, staff or super_admin")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(2)
	}
	switch *role {
	case rbac.RoleOwner, rbac.RoleManager, rbac.RoleStaff, rbac.RoleSuperAdmin:
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		slog.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	tok, err := m.IssueAccess(time.Now(), *userID, *agencyID, *role)
	if err != nil {
		slog.Error("token issuance failed", "err", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
