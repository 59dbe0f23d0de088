package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationFilesExist(t *testing.T) {
	migrationsDir := "../../migrations"

	// Check if migrations directory exists
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	// Expected migration files
	expectedMigrations := []string{
		"00001_create_operators_table.sql",
		"00002_create_refresh_tokens_table.sql",
		"00003_create_items_table.sql",
		"00004_create_sales_table.sql",
		"00005_create_stock_movements_table.sql",
		"00006_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	migrationsDir := "../../migrations"

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)

		// Check for goose Up directive
		if !strings.Contains(contentStr, "-- +goose Up") {
			t.Errorf("Migration file %s missing '-- +goose Up' directive", file.Name())
		}

		// Check for goose Down directive
		if !strings.Contains(contentStr, "-- +goose Down") {
			t.Errorf("Migration file %s missing '-- +goose Down' directive", file.Name())
		}

		// Check for StatementBegin/End
		if !strings.Contains(contentStr, "-- +goose StatementBegin") {
			t.Errorf("Migration file %s missing '-- +goose StatementBegin' directive", file.Name())
		}

		if !strings.Contains(contentStr, "-- +goose StatementEnd") {
			t.Errorf("Migration file %s missing '-- +goose StatementEnd' directive", file.Name())
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	migrationsDir := "../../migrations"

	expectedTables := map[string]string{
		"operators":       "00001_create_operators_table.sql",
		"refresh_tokens":  "00002_create_refresh_tokens_table.sql",
		"items":           "00003_create_items_table.sql",
		"sales":           "00004_create_sales_table.sql",
		"stock_movements": "00005_create_stock_movements_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		path := filepath.Join(migrationsDir, migrationFile)
		content, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", migrationFile, err)
			continue
		}

		contentStr := string(content)

		// Check if migration creates the table
		createTableStmt := "CREATE TABLE IF NOT EXISTS " + tableName
		if !strings.Contains(contentStr, createTableStmt) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}

		// Check if migration has drop table in down section
		dropTableStmt := "DROP TABLE IF EXISTS " + tableName
		if !strings.Contains(contentStr, dropTableStmt) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestOperatorsTableHasRequiredColumns(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00001_create_operators_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read operators migration: %v", err)
	}

	contentStr := string(content)
	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"email VARCHAR",
		"password_hash VARCHAR",
		"display_name VARCHAR",
		"role VARCHAR",
		"created_at TIMESTAMP",
		"updated_at TIMESTAMP",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Operators table missing required column definition: %s", column)
		}
	}
}

func TestItemsTableHasRequiredColumns(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00003_create_items_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read items migration: %v", err)
	}

	contentStr := string(content)
	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"name VARCHAR",
		"category VARCHAR",
		"sku VARCHAR",
		"price DECIMAL",
		"stock INTEGER",
		"reorder_level INTEGER",
		"status VARCHAR",
		"created_at TIMESTAMP",
		"updated_at TIMESTAMP",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Items table missing required column definition: %s", column)
		}
	}

	// Stock can never go negative; the checkout decrement relies on it
	if !strings.Contains(contentStr, "CHECK (stock >= 0)") {
		t.Error("Items table missing non-negative stock constraint")
	}
}

func TestItemsTableHasCategoryConstraint(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00003_create_items_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read items migration: %v", err)
	}

	contentStr := string(content)
	requiredCategories := []string{"device", "part", "accessory", "service"}
	for _, category := range requiredCategories {
		if !strings.Contains(contentStr, category) {
			t.Errorf("Items table category constraint missing value: %s", category)
		}
	}
}

func TestSalesTableHasUniqueSaleNumber(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00004_create_sales_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read sales migration: %v", err)
	}

	contentStr := string(content)

	// Sale number collisions are resolved by regenerating, so the database
	// must enforce uniqueness
	if !strings.Contains(contentStr, "sale_number VARCHAR(32) NOT NULL UNIQUE") {
		t.Error("Sales table missing unique constraint on sale_number")
	}

	requiredMethods := []string{"cash", "card", "transfer", "mixed"}
	for _, method := range requiredMethods {
		if !strings.Contains(contentStr, method) {
			t.Errorf("Sales table payment_method constraint missing value: %s", method)
		}
	}
}

func TestStockMovementsTableReferencesItems(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00005_create_stock_movements_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read stock_movements migration: %v", err)
	}

	contentStr := string(content)

	if !strings.Contains(contentStr, "FOREIGN KEY (item_id)") {
		t.Error("Stock movements table missing foreign key constraint to items")
	}

	requiredTypes := []string{"sale", "adjustment", "restock"}
	for _, movementType := range requiredTypes {
		if !strings.Contains(contentStr, movementType) {
			t.Errorf("Stock movements type constraint missing value: %s", movementType)
		}
	}
}
