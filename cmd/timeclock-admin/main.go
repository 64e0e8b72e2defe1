package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/clock"
	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/integration"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/notify"
	"github.com/timeclock-server/timeclock-server-pro/internal/seal"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/crypto"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "create-tenant":
		err = createTenant(args)
	case "create-admin":
		err = createAdmin(args)
	case "import-employees":
		err = importEmployees(args)
	case "run-scheduler":
		err = runScheduler(args)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: timeclock-admin <command> [flags]

commands:
  create-tenant     -name <name> -plan <lite|pro> [-logo URL] [-primary #hex] [-secondary #hex]
  create-admin      -tenant <slug|id> -username <u> -password <p> -name <full name> -email <e>
  import-employees  -tenant <slug> -file <employees.csv>
  run-scheduler     -once

common flags:
  -config <path>    configuration file (default config/timeclock-server.yml)`)
}

func openStore(fs *flag.FlagSet) (*storage.PostgresStore, *config.Config, error) {
	configFile := fs.Lookup("config").Value.String()
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func configFlag(fs *flag.FlagSet) {
	fs.String("config", "config/timeclock-server.yml", "Configuration file path")
}

// ========== create-tenant ==========

func createTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ExitOnError)
	configFlag(fs)
	name := fs.String("name", "", "Company name")
	plan := fs.String("plan", "pro", "Billing plan (lite|pro)")
	logo := fs.String("logo", "", "Logo URL")
	primary := fs.String("primary", "#1e40af", "Primary brand color")
	secondary := fs.String("secondary", "#f59e0b", "Secondary brand color")
	fs.Parse(args)

	if *name == "" {
		return errors.New("-name is required")
	}
	if !models.Plan(*plan).Valid() {
		return fmt.Errorf("invalid plan %q", *plan)
	}

	store, _, err := openStore(fs)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	slug, err := uniqueSlug(ctx, store, *name)
	if err != nil {
		return err
	}

	t := &models.Tenant{
		Name:           *name,
		Slug:           slug,
		Plan:           models.Plan(*plan),
		LogoURL:        *logo,
		PrimaryColor:   *primary,
		SecondaryColor: *secondary,
		IsActive:       true,
	}
	if err := store.CreateTenant(ctx, t); err != nil {
		return err
	}

	fmt.Printf("tenant created\n  id:   %s\n  slug: %s\n", t.ID, t.Slug)
	return nil
}

// uniqueSlug derives a URL-safe slug from the name and appends a counter
// until it is free.
func uniqueSlug(ctx context.Context, store storage.Store, name string) (string, error) {
	base := slugify(name)
	if base == "" {
		base = "tenant"
	}

	slug := base
	for i := 2; ; i++ {
		_, err := store.GetTenantBySlug(ctx, slug)
		if errors.Is(err, storage.ErrNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// ========== create-admin ==========

func createAdmin(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	configFlag(fs)
	tenantRef := fs.String("tenant", "", "Tenant slug or id")
	username := fs.String("username", "", "Login username")
	password := fs.String("password", "", "Login password")
	fullName := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email address")
	fs.Parse(args)

	if *tenantRef == "" || *username == "" || *password == "" || *fullName == "" || *email == "" {
		return errors.New("-tenant, -username, -password, -name and -email are required")
	}

	store, _, err := openStore(fs)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	t, err := resolveTenant(ctx, store, *tenantRef)
	if err != nil {
		return err
	}

	hash, err := crypto.HashPassword(*password)
	if err != nil {
		return err
	}

	role := models.RoleSuperAdmin
	emp := &models.Employee{
		Username:     *username,
		Email:        *email,
		FullName:     *fullName,
		PasswordHash: hash,
		Role:         &role,
		IsActive:     true,
	}
	scope := tenant.Scope{TenantID: t.ID}
	if err := store.CreateEmployee(ctx, scope, emp); err != nil {
		return err
	}

	fmt.Printf("admin created\n  id:       %s\n  tenant:   %s\n  username: %s\n", emp.ID, t.Slug, emp.Username)
	return nil
}

func resolveTenant(ctx context.Context, store storage.Store, ref string) (*models.Tenant, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return store.GetTenant(ctx, id)
	}
	return store.GetTenantBySlug(ctx, ref)
}

// ========== import-employees ==========

// csv columns: username,password,full_name,email,weekly_hours,center_name,category_name
func importEmployees(args []string) error {
	fs := flag.NewFlagSet("import-employees", flag.ExitOnError)
	configFlag(fs)
	tenantRef := fs.String("tenant", "", "Tenant slug or id")
	file := fs.String("file", "", "CSV file to import")
	fs.Parse(args)

	if *tenantRef == "" || *file == "" {
		return errors.New("-tenant and -file are required")
	}

	store, _, err := openStore(fs)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	t, err := resolveTenant(ctx, store, *tenantRef)
	if err != nil {
		return err
	}
	scope := tenant.Scope{TenantID: t.ID}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 7
	reader.TrimLeadingSpace = true

	imported, failed := 0, 0
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "row %d: %v\n", line, err)
			failed++
			continue
		}
		if line == 1 && record[0] == "username" {
			continue // header
		}
		if err := importRow(ctx, store, scope, record); err != nil {
			fmt.Fprintf(os.Stderr, "row %d (%s): %v\n", line, record[0], err)
			failed++
			continue
		}
		imported++
	}

	fmt.Printf("imported %d employees, %d failed\n", imported, failed)
	if failed > 0 {
		return fmt.Errorf("%d rows failed", failed)
	}
	return nil
}

func importRow(ctx context.Context, store storage.Store, scope tenant.Scope, record []string) error {
	username, password := record[0], record[1]
	fullName, email := record[2], record[3]
	if username == "" || password == "" || fullName == "" || email == "" {
		return errors.New("username, password, full_name and email are required")
	}

	weeklyHours := 0
	if record[4] != "" {
		h, err := strconv.Atoi(record[4])
		if err != nil || h < 0 {
			return fmt.Errorf("invalid weekly_hours %q", record[4])
		}
		weeklyHours = h
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}

	emp := &models.Employee{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
		WeeklyHours:  weeklyHours,
	}

	if record[5] != "" {
		center, err := ensureCenter(ctx, store, scope, record[5])
		if err != nil {
			return err
		}
		emp.CenterID = &center.ID
	}
	if record[6] != "" {
		category, err := ensureCategory(ctx, store, scope, record[6])
		if err != nil {
			return err
		}
		emp.CategoryID = &category.ID
	}

	return store.CreateEmployee(ctx, scope, emp)
}

func ensureCenter(ctx context.Context, store storage.Store, scope tenant.Scope, name string) (*models.Center, error) {
	center, err := store.GetCenterByName(ctx, scope, name)
	if err == nil {
		return center, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	center = &models.Center{Name: name}
	if err := store.CreateCenter(ctx, scope, center); err != nil {
		return nil, err
	}
	return center, nil
}

func ensureCategory(ctx context.Context, store storage.Store, scope tenant.Scope, name string) (*models.Category, error) {
	category, err := store.GetCategoryByName(ctx, scope, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	category = &models.Category{Name: name}
	if err := store.CreateCategory(ctx, scope, category); err != nil {
		return nil, err
	}
	return category, nil
}

// ========== run-scheduler ==========

func runScheduler(args []string) error {
	fs := flag.NewFlagSet("run-scheduler", flag.ExitOnError)
	configFlag(fs)
	once := fs.Bool("once", false, "Run a single pass and exit")
	fs.Parse(args)

	if !*once {
		return errors.New("only -once mode is supported; the server hosts the periodic scheduler")
	}

	store, cfg, err := openStore(fs)
	if err != nil {
		return err
	}
	defer store.Close()

	sealer, err := seal.New(cfg.Signing)
	if err != nil {
		return err
	}

	ctx := context.Background()
	loc := cfg.Location()

	scheduler := notify.NewScheduler(store, notify.NewSMTPMailer(cfg.Mail), cfg.Scheduler.ReminderInterval, loc)
	if err := scheduler.Tick(ctx, time.Now()); err != nil {
		return err
	}

	engine := clock.NewEngine(store, sealer, integration.NewPublisher(nil), loc)
	closed, err := engine.AutoClose(ctx, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("scheduler pass finished, %d punches auto-closed\n", closed)
	return nil
}
