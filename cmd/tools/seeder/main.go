package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	taxIDs := seedTaxRates(db)
	seedPaymentMethods(db)
	seedProducts(db, taxIDs)
	seedOperators(db)
	seedCustomers(db)

	log.Println("Seeding completed successfully!")
}

func seedTaxRates(db *sql.DB) map[string]string {
	rates := []struct {
		Name string
		Rate string
	}{
		{"IVA 14", "14.00"},
		{"IVA 7", "7.00"},
		{"Isento", "0.00"},
	}

	fmt.Println("Seeding Tax Rates...")
	ids := make(map[string]string)
	for _, r := range rates {
		var id string
		err := db.QueryRow(`
			SELECT id FROM tax_rates WHERE name = $1
		`, r.Name).Scan(&id)
		if err == sql.ErrNoRows {
			err = db.QueryRow(`
				INSERT INTO tax_rates (name, rate) VALUES ($1, $2) RETURNING id;
			`, r.Name, r.Rate).Scan(&id)
		}
		if err != nil {
			log.Printf("Failed to seed tax rate %s: %v", r.Name, err)
			continue
		}
		ids[r.Name] = id
	}
	return ids
}

func seedPaymentMethods(db *sql.DB) {
	methods := []struct {
		Code         string
		Name         string
		AllowsChange bool
	}{
		{"CASH", "Dinheiro", true},
		{"CARD", "Multicaixa", false},
		{"TRANSFER", "Transferencia", false},
	}

	fmt.Println("Seeding Payment Methods...")
	for _, m := range methods {
		_, err := db.Exec(`
			INSERT INTO payment_methods (code, name, allows_change)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				allows_change = EXCLUDED.allows_change;
		`, m.Code, m.Name, m.AllowsChange)
		if err != nil {
			log.Printf("Failed to seed payment method %s: %v", m.Code, err)
		}
	}
}

func seedProducts(db *sql.DB, taxIDs map[string]string) {
	products := []struct {
		Name          string
		Barcode       string
		PurchasePrice string
		SalePrice     string
		Stock         int
		Tax           string
	}{
		{"Arroz Agulha 1kg", "6001001000011", "450.00", "650.00", 120, "IVA 14"},
		{"Feijao Catarino 1kg", "6001001000028", "700.00", "980.00", 80, "IVA 14"},
		{"Oleo Alimentar 1L", "6001001000035", "900.00", "1250.00", 60, "IVA 14"},
		{"Acucar Branco 1kg", "6001001000042", "380.00", "520.00", 150, "IVA 7"},
		{"Farinha de Trigo 1kg", "6001001000059", "400.00", "560.00", 90, "IVA 7"},
		{"Leite em Po 400g", "6001001000066", "1500.00", "2100.00", 45, "IVA 7"},
		{"Agua Mineral 1.5L", "6001001000073", "120.00", "200.00", 300, "Isento"},
		{"Pao de Forma", "6001001000080", "350.00", "500.00", 40, "Isento"},
		{"Sabao Azul", "6001001000097", "250.00", "380.00", 200, "IVA 14"},
		{"Detergente 500ml", "6001001000103", "600.00", "850.00", 70, "IVA 14"},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		taxID, ok := taxIDs[p.Tax]
		if !ok {
			log.Printf("Missing tax rate ID for %s", p.Tax)
			continue
		}
		_, err := db.Exec(`
			INSERT INTO products (name, barcode, purchase_price, sale_price, stock, tax_rate_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (barcode) DO UPDATE SET
				name = EXCLUDED.name,
				purchase_price = EXCLUDED.purchase_price,
				sale_price = EXCLUDED.sale_price,
				stock = EXCLUDED.stock,
				tax_rate_id = EXCLUDED.tax_rate_id;
		`, p.Name, p.Barcode, p.PurchasePrice, p.SalePrice, p.Stock, taxID)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedOperators(db *sql.DB) {
	operators := []struct {
		Username string
		Name     string
		Role     string
		Password string
	}{
		{"admin", "Administrador", "admin", "admin12345"},
		{"kasir1", "Operador Um", "operator", "operator123"},
		{"kasir2", "Operador Dois", "operator", "operator123"},
	}

	fmt.Println("Seeding Operators...")
	for _, o := range operators {
		hash, err := argon2id.CreateHash(o.Password, argon2id.DefaultParams)
		if err != nil {
			log.Printf("Failed to hash password for %s: %v", o.Username, err)
			continue
		}
		_, err = db.Exec(`
			INSERT INTO operators (username, name, role, password_hash)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (username) DO NOTHING;
		`, o.Username, o.Name, o.Role, hash)
		if err != nil {
			log.Printf("Failed to seed operator %s: %v", o.Username, err)
		}
	}
}

func seedCustomers(db *sql.DB) {
	customers := []struct {
		Name     string
		CardCode string
		Phone    string
	}{
		{"Maria Fernanda", "C-0001", "+244923000001"},
		{"Joao Baptista", "C-0002", "+244923000002"},
		{"Ana Paula", "C-0003", "+244923000003"},
		{"Carlos Alberto", "C-0004", "+244923000004"},
	}

	fmt.Println("Seeding Customers...")
	for _, c := range customers {
		_, err := db.Exec(`
			INSERT INTO customers (name, card_code, phone)
			VALUES ($1, $2, $3)
			ON CONFLICT (card_code) DO NOTHING;
		`, c.Name, c.CardCode, c.Phone)
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.Name, err)
		}
	}
}
