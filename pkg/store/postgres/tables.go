package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/pkg/entities"
)

// Products returns the product repository.
func Products(db Querier, logger zerolog.Logger) *Repo[entities.ProductRow] {
	return newRepo(db, table[entities.ProductRow]{
		entity: entities.Product,
		name:   "products",
		from:   "products p LEFT JOIN vendors v ON v.id = p.vendor_id",
		sel: []string{
			"p.id", "p.company_id", "p.name", "p.sku", "p.category", "p.price_cents",
			"p.currency", "p.active", "p.vendor_id", "v.name", "p.created_at", "p.updated_at",
		},
		cols: columns{
			ID:      "p.id",
			Company: "p.company_id",
			Search:  []string{"p.name", "p.sku"},
			Sorts: map[string]string{
				"name":      "p.name",
				"sku":       "p.sku",
				"price":     "p.price_cents",
				"createdAt": "p.created_at",
				"updatedAt": "p.updated_at",
			},
			Vendor:   "p.vendor_id",
			Category: "p.category",
			Currency: "p.currency",
			Active:   "p.active",
		},
		scan: func(row pgx.Row) (entities.ProductRow, error) {
			var p entities.ProductRow
			err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.SKU, &p.Category, &p.PriceCents,
				&p.Currency, &p.Active, &p.VendorID, &p.VendorName, &p.CreatedAt, &p.UpdatedAt)
			return p, err
		},
		values: func(p entities.ProductRow) map[string]any {
			return map[string]any{
				"company_id":  p.CompanyID,
				"name":        p.Name,
				"sku":         p.SKU,
				"category":    p.Category,
				"price_cents": p.PriceCents,
				"currency":    p.Currency,
				"active":      p.Active,
				"vendor_id":   p.VendorID,
			}
		},
	}, logger)
}

// Vendors returns the vendor repository.
func Vendors(db Querier, logger zerolog.Logger) *Repo[entities.VendorRow] {
	return newRepo(db, table[entities.VendorRow]{
		entity: entities.Vendor,
		name:   "vendors",
		from:   "vendors v",
		sel:    []string{"v.id", "v.company_id", "v.name", "v.email", "v.vat_number", "v.active", "v.created_at", "v.updated_at"},
		cols: columns{
			ID:      "v.id",
			Company: "v.company_id",
			Search:  []string{"v.name", "v.email", "v.vat_number"},
			Sorts: map[string]string{
				"name":      "v.name",
				"createdAt": "v.created_at",
				"updatedAt": "v.updated_at",
			},
			Active: "v.active",
		},
		scan: func(row pgx.Row) (entities.VendorRow, error) {
			var v entities.VendorRow
			err := row.Scan(&v.ID, &v.CompanyID, &v.Name, &v.Email, &v.VATNumber, &v.Active, &v.CreatedAt, &v.UpdatedAt)
			return v, err
		},
		values: func(v entities.VendorRow) map[string]any {
			return map[string]any{
				"company_id": v.CompanyID,
				"name":       v.Name,
				"email":      v.Email,
				"vat_number": v.VATNumber,
				"active":     v.Active,
			}
		},
	}, logger)
}

// Clients returns the client repository.
func Clients(db Querier, logger zerolog.Logger) *Repo[entities.ClientRow] {
	return newRepo(db, table[entities.ClientRow]{
		entity: entities.Client,
		name:   "clients",
		from:   "clients c",
		sel:    []string{"c.id", "c.company_id", "c.name", "c.email", "c.vat_number", "c.active", "c.created_at", "c.updated_at"},
		cols: columns{
			ID:      "c.id",
			Company: "c.company_id",
			Search:  []string{"c.name", "c.email", "c.vat_number"},
			Sorts: map[string]string{
				"name":      "c.name",
				"createdAt": "c.created_at",
				"updatedAt": "c.updated_at",
			},
			Active: "c.active",
		},
		scan: func(row pgx.Row) (entities.ClientRow, error) {
			var c entities.ClientRow
			err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.VATNumber, &c.Active, &c.CreatedAt, &c.UpdatedAt)
			return c, err
		},
		values: func(c entities.ClientRow) map[string]any {
			return map[string]any{
				"company_id": c.CompanyID,
				"name":       c.Name,
				"email":      c.Email,
				"vat_number": c.VATNumber,
				"active":     c.Active,
			}
		},
	}, logger)
}

// Wallets returns the wallet repository.
func Wallets(db Querier, logger zerolog.Logger) *Repo[entities.WalletRow] {
	return newRepo(db, table[entities.WalletRow]{
		entity: entities.Wallet,
		name:   "wallets",
		from:   "wallets w LEFT JOIN clients c ON c.id = w.client_id",
		sel: []string{
			"w.id", "w.company_id", "w.client_id", "c.name", "w.provider", "w.currency",
			"w.balance_cents", "w.active", "w.created_at", "w.updated_at",
		},
		cols: columns{
			ID:      "w.id",
			Company: "w.company_id",
			Search:  []string{"w.provider", "c.name"},
			Sorts: map[string]string{
				"updatedAt": "w.updated_at",
				"createdAt": "w.created_at",
				"balance":   "w.balance_cents",
				"provider":  "w.provider",
			},
			Currency: "w.currency",
			Active:   "w.active",
		},
		scan: func(row pgx.Row) (entities.WalletRow, error) {
			var w entities.WalletRow
			err := row.Scan(&w.ID, &w.CompanyID, &w.ClientID, &w.ClientName, &w.Provider, &w.Currency,
				&w.BalanceCents, &w.Active, &w.CreatedAt, &w.UpdatedAt)
			return w, err
		},
		values: func(w entities.WalletRow) map[string]any {
			return map[string]any{
				"company_id":    w.CompanyID,
				"client_id":     w.ClientID,
				"provider":      w.Provider,
				"currency":      w.Currency,
				"balance_cents": w.BalanceCents,
				"active":        w.Active,
			}
		},
	}, logger)
}
