package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"

	"roulette/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	migrationsPath := getEnv("MIGRATIONS_PATH", "./migrations")

	if command == "create" {
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate create <migration_name>")
		}
		up, down, err := createMigration(migrationsPath, os.Args[2], time.Now())
		if err != nil {
			log.Fatalf("Create failed: %v", err)
		}
		log.Printf("Created %s and %s", up, down)
		return
	}

	db, err := sql.Open("pgx", database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		if err := database.RunMigrations(db, migrationsPath); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

	case "down":
		if err := database.RollbackMigration(db, migrationsPath); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("Rolled back one migration")

	case "version":
		version, dirty, err := database.GetMigrationVersion(db, migrationsPath)
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		if dirty {
			log.Printf("Current version: %d (dirty, repair it and run: migrate force %d)", version, version)
		} else {
			log.Printf("Current version: %d", version)
		}

	case "force":
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("Invalid version %q: %v", os.Args[2], err)
		}
		if err := database.ForceMigration(db, migrationsPath, version); err != nil {
			log.Fatalf("Force failed: %v", err)
		}

	default:
		log.Printf("Unknown command: %s", command)
		printUsage()
		os.Exit(1)
	}
}

// nextVersion returns one past the highest NNNNNN_ prefix in dir.
func nextVersion(dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	next := 1
	for _, file := range files {
		prefix, _, ok := strings.Cut(file.Name(), "_")
		if file.IsDir() || !ok {
			continue
		}
		if version, err := strconv.Atoi(prefix); err == nil && version >= next {
			next = version + 1
		}
	}
	return next, nil
}

func createMigration(dir, name string, now time.Time) (string, string, error) {
	version, err := nextVersion(dir)
	if err != nil {
		return "", "", fmt.Errorf("read migrations: %w", err)
	}

	base := filepath.Join(dir, fmt.Sprintf("%06d_%s", version, name))
	up, down := base+".up.sql", base+".down.sql"

	upContent := fmt.Sprintf("-- %s (created %s)\n", name, now.Format(time.RFC3339))
	if err := os.WriteFile(up, []byte(upContent), 0644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(down, []byte("-- rollback "+name+"\n"), 0644); err != nil {
		return "", "", err
	}
	return up, down, nil
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up                apply pending migrations")
	fmt.Println("  migrate down              roll back the last migration")
	fmt.Println("  migrate version           show the applied version")
	fmt.Println("  migrate force <version>   clear a dirty state after a manual fix")
	fmt.Println("  migrate create <name>     add an empty up/down pair")
	fmt.Println()
	fmt.Println("Connection comes from BLUEPRINT_DB_* (see internal/database); files from MIGRATIONS_PATH.")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
