// Package entities defines the rows served by the fast list endpoints and the
// cache policy of each list, tuned to how often the entity changes.
package entities

import "time"

// Entity names double as cache namespaces.
const (
	Product = "product"
	Vendor  = "vendor"
	Client  = "client"
	Wallet  = "wallet"
)

// Record is implemented by every entity row.
type Record interface {
	RecordID() string
	Company() int64
}

// ProductRow is a product list row. Vendor fields are embedded from the vendor table.
type ProductRow struct {
	ID         string    `json:"id"`
	CompanyID  int64     `json:"companyId"`
	Name       string    `json:"name"`
	SKU        string    `json:"sku"`
	Category   string    `json:"category"`
	PriceCents int64     `json:"priceCents"`
	Currency   string    `json:"currency"`
	Active     bool      `json:"active"`
	VendorID   *string   `json:"vendorId,omitempty"`
	VendorName *string   `json:"vendorName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (p ProductRow) RecordID() string { return p.ID }
func (p ProductRow) Company() int64   { return p.CompanyID }

// VendorRow is a vendor list row.
type VendorRow struct {
	ID        string    `json:"id"`
	CompanyID int64     `json:"companyId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	VATNumber string    `json:"vatNumber"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (v VendorRow) RecordID() string { return v.ID }
func (v VendorRow) Company() int64   { return v.CompanyID }

// ClientRow is a client list row.
type ClientRow struct {
	ID        string    `json:"id"`
	CompanyID int64     `json:"companyId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	VATNumber string    `json:"vatNumber"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c ClientRow) RecordID() string { return c.ID }
func (c ClientRow) Company() int64   { return c.CompanyID }

// WalletRow is a digital wallet list row. Client name is embedded from the client table.
type WalletRow struct {
	ID           string    `json:"id"`
	CompanyID    int64     `json:"companyId"`
	ClientID     *string   `json:"clientId,omitempty"`
	ClientName   *string   `json:"clientName,omitempty"`
	Provider     string    `json:"provider"`
	Currency     string    `json:"currency"`
	BalanceCents int64     `json:"balanceCents"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (w WalletRow) RecordID() string { return w.ID }
func (w WalletRow) Company() int64   { return w.CompanyID }
