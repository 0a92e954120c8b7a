// cmd/tools/directory-seeder/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	"comms-portal/internal/common/config"
	"comms-portal/internal/common/database"
	"comms-portal/internal/models"
)

func main() {
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	seedPath := seedCmd.String("file", "configs/ministries.json", "Path to ministries JSON file")
	seedDeactivate := seedCmd.Bool("deactivate-missing", false, "Deactivate ministries not present in the file")
	validatePath := validateCmd.String("file", "configs/ministries.json", "Path to ministries JSON file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "seed":
		seedCmd.Parse(os.Args[2:])
		ministries, err := loadFile(*seedPath)
		if err != nil {
			fmt.Printf("Error loading ministries file: %v\n", err)
			os.Exit(1)
		}
		db, err := connect()
		if err != nil {
			fmt.Printf("Error connecting to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := seed(db, ministries, *seedDeactivate); err != nil {
			fmt.Printf("Error seeding ministries: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d ministries from %s\n", len(ministries), *seedPath)

	case "list":
		listCmd.Parse(os.Args[2:])
		db, err := connect()
		if err != nil {
			fmt.Printf("Error connecting to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := list(db); err != nil {
			fmt.Printf("Error listing ministries: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		ministries, err := loadFile(*validatePath)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("File is valid: %d ministries\n", len(ministries))

	default:
		help()
		os.Exit(1)
	}
}

func help() {
	fmt.Println("Usage: directory-seeder <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  seed      Upsert ministries from a JSON file into the directory")
	fmt.Println("  list      Print the active ministry directory")
	fmt.Println("  validate  Check a ministries JSON file without touching the database")
}

func loadFile(path string) ([]models.Ministry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ministries []models.Ministry
	if err := json.Unmarshal(data, &ministries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := map[string]bool{}
	for i, m := range ministries {
		if m.Name == "" {
			return nil, fmt.Errorf("ministry at index %d has no name", i)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("duplicate ministry name: %s", m.Name)
		}
		seen[m.Name] = true
		if m.RequiresApproval && m.ApprovalCoordinator == "" {
			return nil, fmt.Errorf("ministry %q requires approval but has no coordinator", m.Name)
		}
	}
	return ministries, nil
}

func connect() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pg.Ping(ctx); err != nil {
		return nil, err
	}
	return pg.DB, nil
}

func seed(db *sql.DB, ministries []models.Ministry, deactivateMissing bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	names := make([]string, 0, len(ministries))
	for _, m := range ministries {
		names = append(names, m.Name)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ministries (ministry_name, aliases, description, requires_approval, approval_coordinator, coordinator_phone, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (ministry_name) DO UPDATE SET
				aliases = EXCLUDED.aliases,
				description = EXCLUDED.description,
				requires_approval = EXCLUDED.requires_approval,
				approval_coordinator = EXCLUDED.approval_coordinator,
				coordinator_phone = EXCLUDED.coordinator_phone,
				active = TRUE,
				updated_at = NOW()`,
			m.Name, pq.Array(m.Aliases), m.Description, m.RequiresApproval, m.ApprovalCoordinator, m.CoordinatorPhone,
		)
		if err != nil {
			return fmt.Errorf("upsert %q: %w", m.Name, err)
		}
	}

	if deactivateMissing {
		_, err := tx.ExecContext(ctx,
			`UPDATE ministries SET active = FALSE, updated_at = NOW() WHERE NOT (ministry_name = ANY($1))`,
			pq.Array(names),
		)
		if err != nil {
			return fmt.Errorf("deactivate missing: %w", err)
		}
	}

	return tx.Commit()
}

func list(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT ministry_name, requires_approval, COALESCE(approval_coordinator, ''), array_length(aliases, 1)
		FROM ministries WHERE active = TRUE ORDER BY ministry_name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, coordinator string
		var requiresApproval bool
		var aliasCount sql.NullInt64
		if err := rows.Scan(&name, &requiresApproval, &coordinator, &aliasCount); err != nil {
			return err
		}
		routing := "auto-approve"
		if requiresApproval {
			routing = fmt.Sprintf("pending -> %s", coordinator)
		}
		fmt.Printf("%-40s aliases=%-3d %s\n", name, aliasCount.Int64, routing)
	}
	return rows.Err()
}
