// Command provision-admin creates or repairs an admin account. It is
// idempotent: rerunning it for an existing email only ensures the role
// assignment, it never duplicates the account.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"issuedesk.org/internal/auth"
	"issuedesk.org/internal/store/pg"
)

func main() {
	var (
		dsn        = flag.String("dsn", os.Getenv("ISSUEDESK_PG_DSN"), "Postgres DSN")
		email      = flag.String("email", "", "admin email")
		password   = flag.String("password", "", "admin password (used only when the account is created)")
		fullName   = flag.String("full-name", "", "admin full name")
		phone      = flag.String("phone", "", "admin phone, 10 digits")
		employeeID = flag.String("employee-id", "", "employee ID, alphanumeric")
	)
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "provision-admin: -dsn or ISSUEDESK_PG_DSN is required")
		os.Exit(2)
	}

	store, err := pg.Open(*dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provision-admin: open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	provisioner, err := auth.NewProvisioner(auth.NewPGStore(store.DB()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "provision-admin: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := provisioner.Provision(ctx, auth.ProvisionParams{
		Email:      *email,
		Password:   *password,
		FullName:   *fullName,
		Phone:      *phone,
		EmployeeID: *employeeID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "provision-admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("admin %s ready (user id %s)\n", user.Email, user.ID)
}
