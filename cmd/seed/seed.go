package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/database"
)

// seedNamespace derives stable IDs so reruns upsert the same rows.
var seedNamespace = uuid.MustParse("6f1c3a52-8d0e-4b7a-9a43-2f5d0c9e7b11")

func seedID(kind, name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+name)).String()
}

type productDef struct {
	name        string
	category    string
	seller      string
	price       float64
	stock       int
	description string
}

func catalog() ([]domain.Seller, []domain.Product) {
	sellers := []domain.Seller{
		{Name: "Oasis Farms", Email: "hello@oasisfarms.test", Phone: "+966500000001"},
		{Name: "Desert Loom", Email: "shop@desertloom.test", Phone: "+966500000002"},
		{Name: "Gulf Roasters", Email: "orders@gulfroasters.test", Phone: "+966500000003"},
	}
	for i := range sellers {
		sellers[i].ID = seedID("seller", sellers[i].Name)
	}

	defs := []productDef{
		{"Medjool Dates 1kg", "food", "Oasis Farms", 18.50, 120, "Soft, large dates packed the week they are harvested."},
		{"Sidr Honey 500g", "food", "Oasis Farms", 42.00, 40, "Raw honey from sidr blossoms."},
		{"Date Syrup", "food", "Oasis Farms", 9.75, 80, "Cold-pressed syrup with no added sugar."},
		{"Handwoven Sadu Rug", "home", "Desert Loom", 260.00, 6, "Wool rug woven on a ground loom in traditional patterns."},
		{"Sadu Cushion Cover", "home", "Desert Loom", 34.00, 25, "Cushion cover cut from sadu offcuts."},
		{"Arabic Coffee Blend 250g", "food", "Gulf Roasters", 14.00, 200, "Light roast with cardamom and saffron."},
		{"Dallah Coffee Pot", "home", "Gulf Roasters", 55.00, 15, "Brass dallah for serving Arabic coffee."},
		{"Finjan Cup Set", "home", "Gulf Roasters", 22.00, 30, "Six porcelain cups."},
	}

	products := make([]domain.Product, 0, len(defs))
	for _, d := range defs {
		products = append(products, domain.Product{
			ID:          seedID("product", d.name),
			Name:        d.name,
			Price:       d.price,
			Category:    d.category,
			SellerID:    seedID("seller", d.seller),
			Stock:       d.stock,
			Description: d.description,
			Image:       fmt.Sprintf("https://picsum.photos/seed/%s/800/800", seedID("image", d.name)),
		})
	}
	return sellers, products
}

const upsertSeller = `INSERT INTO sellers (id, name, email, phone)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone`

// Stock is reset on rerun; rating and sales are left to the running service.
const upsertProduct = `INSERT INTO products (id, name, price, category, seller_id, stock, description, image)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price,
		category = EXCLUDED.category, seller_id = EXCLUDED.seller_id, stock = EXCLUDED.stock,
		description = EXCLUDED.description, image = EXCLUDED.image`

// seedCatalog upserts all rows in one transaction.
func seedCatalog(ctx context.Context, db database.DBTX, sellers []domain.Seller, products []domain.Product, log *slog.Logger) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range sellers {
		if _, err := tx.Exec(ctx, upsertSeller, s.ID, s.Name, s.Email, s.Phone); err != nil {
			return fmt.Errorf("seller %q: %w", s.Name, err)
		}
		log.Debug("seller seeded", slog.String("id", s.ID), slog.String("name", s.Name))
	}

	for _, p := range products {
		if _, err := tx.Exec(ctx, upsertProduct,
			p.ID, p.Name, p.Price, p.Category, p.SellerID, p.Stock, p.Description, p.Image,
		); err != nil {
			return fmt.Errorf("product %q: %w", p.Name, err)
		}
		log.Debug("product seeded", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
