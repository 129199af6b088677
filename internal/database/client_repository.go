package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/google/uuid"
)

// ClientRepository handles client registry database operations
type ClientRepository struct {
	db DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db DB) *ClientRepository {
	return &ClientRepository{
		db: db,
	}
}

// CreateClient inserts a new client. The unique index on ruc enforces the
// registry invariant.
func (r *ClientRepository) CreateClient(client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt
	if client.Status == "" {
		client.Status = models.ClientStatusActive
	}
	if client.Tier == "" {
		client.Tier = models.TierC
	}

	query := `
		INSERT INTO clients (
			id, ruc, legal_name, commercial_name, province, canton, address,
			latitude, longitude, seller_name, phone, tier, last_purchase_at,
			repurchase_interval_days, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Exec(
		query,
		client.ID,
		client.RUC,
		client.LegalName,
		client.CommercialName,
		client.Province,
		client.Canton,
		client.Address,
		client.Latitude,
		client.Longitude,
		client.SellerName,
		client.Phone,
		client.Tier,
		client.LastPurchaseAt,
		client.RepurchaseIntervalDays,
		client.Status,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// UpsertClientByRUC inserts or updates a client keyed on its RUC (CSV import)
func (r *ClientRepository) UpsertClientByRUC(client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if client.Status == "" {
		client.Status = models.ClientStatusActive
	}
	if client.Tier == "" {
		client.Tier = models.TierC
	}

	query := `
		INSERT INTO clients (
			id, ruc, legal_name, commercial_name, province, canton, address,
			latitude, longitude, seller_name, phone, tier, last_purchase_at,
			repurchase_interval_days, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		ON CONFLICT (ruc) DO UPDATE SET
			legal_name = EXCLUDED.legal_name,
			commercial_name = EXCLUDED.commercial_name,
			province = EXCLUDED.province,
			canton = EXCLUDED.canton,
			address = EXCLUDED.address,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			seller_name = EXCLUDED.seller_name,
			phone = EXCLUDED.phone,
			tier = EXCLUDED.tier,
			last_purchase_at = EXCLUDED.last_purchase_at,
			repurchase_interval_days = EXCLUDED.repurchase_interval_days,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := r.db.Exec(
		query,
		client.ID,
		client.RUC,
		client.LegalName,
		client.CommercialName,
		client.Province,
		client.Canton,
		client.Address,
		client.Latitude,
		client.Longitude,
		client.SellerName,
		client.Phone,
		client.Tier,
		client.LastPurchaseAt,
		client.RepurchaseIntervalDays,
		client.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert client %s: %w", client.RUC, err)
	}

	return nil
}

// GetClientByRUC retrieves a client by RUC
func (r *ClientRepository) GetClientByRUC(ruc string) (*models.Client, error) {
	var client models.Client
	query := `SELECT * FROM clients WHERE ruc = $1`

	err := r.db.Get(&client, query, ruc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client by ruc: %w", err)
	}

	return &client, nil
}

// GetClientByID retrieves a client by id
func (r *ClientRepository) GetClientByID(id uuid.UUID) (*models.Client, error) {
	var client models.Client
	query := `SELECT * FROM clients WHERE id = $1`

	err := r.db.Get(&client, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client by id: %w", err)
	}

	return &client, nil
}

// ListClients returns clients, optionally restricted to active ones
func (r *ClientRepository) ListClients(activeOnly bool) ([]models.Client, error) {
	var clients []models.Client

	query := `SELECT * FROM clients ORDER BY legal_name`
	if activeOnly {
		query = `SELECT * FROM clients WHERE status = 'activo' ORDER BY legal_name`
	}

	if err := r.db.Select(&clients, query); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	return clients, nil
}

// ListClientsBySeller returns active clients owned by a seller name
func (r *ClientRepository) ListClientsBySeller(sellerName string) ([]models.Client, error) {
	var clients []models.Client
	query := `SELECT * FROM clients WHERE seller_name = $1 AND status = 'activo' ORDER BY legal_name`

	if err := r.db.Select(&clients, query, sellerName); err != nil {
		return nil, fmt.Errorf("failed to list clients by seller: %w", err)
	}

	return clients, nil
}

// UpdateClient updates a client record
func (r *ClientRepository) UpdateClient(client *models.Client) error {
	query := `
		UPDATE clients
		SET legal_name = $2, commercial_name = $3, province = $4, canton = $5,
		    address = $6, latitude = $7, longitude = $8, seller_name = $9,
		    phone = $10, tier = $11, last_purchase_at = $12,
		    repurchase_interval_days = $13, status = $14, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		client.ID,
		client.LegalName,
		client.CommercialName,
		client.Province,
		client.Canton,
		client.Address,
		client.Latitude,
		client.Longitude,
		client.SellerName,
		client.Phone,
		client.Tier,
		client.LastPurchaseAt,
		client.RepurchaseIntervalDays,
		client.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("client not found: %s", client.ID)
	}

	return nil
}
