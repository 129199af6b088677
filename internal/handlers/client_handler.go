package handlers

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/distrifarma/rutero-backend/pkg/validator"
	"github.com/gin-gonic/gin"
)

// csvHeader is the canonical column order for client import/export
var csvHeader = []string{
	"ruc", "legal_name", "commercial_name", "province", "canton", "address",
	"latitude", "longitude", "seller_name", "phone", "tier",
	"last_purchase_at", "repurchase_interval_days", "status",
}

// ClientHandler handles client registry operations
type ClientHandler struct {
	clientRepo   *database.ClientRepository
	rucValidator *validator.RUCValidator
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientRepo *database.ClientRepository, rucValidator *validator.RUCValidator) *ClientHandler {
	return &ClientHandler{
		clientRepo:   clientRepo,
		rucValidator: rucValidator,
	}
}

// ClientRequest is the client create/update payload
type ClientRequest struct {
	RUC                    string   `json:"ruc" binding:"required"`
	LegalName              string   `json:"legal_name" binding:"required"`
	CommercialName         string   `json:"commercial_name"`
	Province               string   `json:"province"`
	Canton                 string   `json:"canton"`
	Address                string   `json:"address"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	SellerName             string   `json:"seller_name" binding:"required"`
	Phone                  string   `json:"phone"`
	Tier                   string   `json:"tier"`
	RepurchaseIntervalDays int      `json:"repurchase_interval_days"`
	Status                 string   `json:"status"`
}

func (req *ClientRequest) toModel() *models.Client {
	client := &models.Client{
		RUC:                    req.RUC,
		LegalName:              req.LegalName,
		CommercialName:         req.CommercialName,
		SellerName:             req.SellerName,
		Tier:                   req.Tier,
		RepurchaseIntervalDays: req.RepurchaseIntervalDays,
		Status:                 req.Status,
	}
	setNullString(&client.Province, req.Province)
	setNullString(&client.Canton, req.Canton)
	setNullString(&client.Address, req.Address)
	setNullString(&client.Phone, req.Phone)
	if req.Latitude != nil {
		client.Latitude = models.NullFloat{NullFloat64: sql.NullFloat64{Float64: *req.Latitude, Valid: true}}
	}
	if req.Longitude != nil {
		client.Longitude = models.NullFloat{NullFloat64: sql.NullFloat64{Float64: *req.Longitude, Valid: true}}
	}
	return client
}

func setNullString(dest *models.NullString, value string) {
	if value != "" {
		dest.String = value
		dest.Valid = true
	}
}

// CreateClient registers a new client
// POST /api/v1/clients
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ruc, legal_name and seller_name are required"})
		return
	}

	ruc, err := h.rucValidator.Validate(req.RUC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.RUC = ruc

	existing, err := h.clientRepo.GetClientByRUC(ruc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check registry"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A client with this RUC already exists"})
		return
	}

	client := req.toModel()
	if err := h.clientRepo.CreateClient(client); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create client"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"client": client})
}

// ListClients returns the registry, optionally active only or by seller
// GET /api/v1/clients?active=true&seller=NAME
func (h *ClientHandler) ListClients(c *gin.Context) {
	if seller := c.Query("seller"); seller != "" {
		clients, err := h.clientRepo.ListClientsBySeller(seller)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list clients"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"clients": clients, "count": len(clients)})
		return
	}

	activeOnly := c.Query("active") == "true"
	clients, err := h.clientRepo.ListClients(activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list clients"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clients": clients, "count": len(clients)})
}

// GetClient returns one client by RUC
// GET /api/v1/clients/:ruc
func (h *ClientHandler) GetClient(c *gin.Context) {
	client, err := h.clientRepo.GetClientByRUC(c.Param("ruc"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load client"})
		return
	}
	if client == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": client})
}

// UpdateClient updates a client identified by RUC
// PUT /api/v1/clients/:ruc
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	client, err := h.clientRepo.GetClientByRUC(c.Param("ruc"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load client"})
		return
	}
	if client == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ruc, legal_name and seller_name are required"})
		return
	}

	updated := req.toModel()
	updated.ID = client.ID
	updated.RUC = client.RUC // identity is immutable
	updated.LastPurchaseAt = client.LastPurchaseAt
	if err := h.clientRepo.UpdateClient(updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update client"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": updated})
}

// ExportClients streams the registry as CSV
// GET /api/v1/clients/export
func (h *ClientHandler) ExportClients(c *gin.Context) {
	clients, err := h.clientRepo.ListClients(false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list clients"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="clients.csv"`)

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return
	}
	for _, client := range clients {
		record := []string{
			client.RUC,
			client.LegalName,
			client.CommercialName,
			client.Province.String,
			client.Canton.String,
			client.Address.String,
			formatNullFloat(client.Latitude),
			formatNullFloat(client.Longitude),
			client.SellerName,
			client.Phone.String,
			client.Tier,
			formatNullDate(client.LastPurchaseAt),
			strconv.Itoa(client.RepurchaseIntervalDays),
			client.Status,
		}
		if err := w.Write(record); err != nil {
			return
		}
	}
}

// ImportClients upserts clients from an uploaded CSV file (multipart field
// "file"), keyed on RUC. Bad rows are reported, good rows still land.
// POST /api/v1/clients/import
func (h *ClientHandler) ImportClients(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file is required under field 'file'"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CSV file"})
		return
	}
	if len(rows) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV has no data rows"})
		return
	}

	imported := 0
	var rowErrors []string
	for i, row := range rows[1:] { // skip header
		client, err := h.parseCSVRow(row)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}
		if err := h.clientRepo.UpsertClientByRUC(client); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}
		imported++
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"errors":   rowErrors,
	})
}

func (h *ClientHandler) parseCSVRow(row []string) (*models.Client, error) {
	if len(row) < len(csvHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}

	ruc, err := h.rucValidator.Validate(row[0])
	if err != nil {
		return nil, err
	}

	client := &models.Client{
		RUC:            ruc,
		LegalName:      row[1],
		CommercialName: row[2],
		SellerName:     row[8],
		Tier:           row[10],
		Status:         row[13],
	}
	setNullString(&client.Province, row[3])
	setNullString(&client.Canton, row[4])
	setNullString(&client.Address, row[5])
	setNullString(&client.Phone, row[9])

	if row[6] != "" {
		lat, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q", row[6])
		}
		client.Latitude = models.NullFloat{NullFloat64: sql.NullFloat64{Float64: lat, Valid: true}}
	}
	if row[7] != "" {
		lng, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q", row[7])
		}
		client.Longitude = models.NullFloat{NullFloat64: sql.NullFloat64{Float64: lng, Valid: true}}
	}
	if row[11] != "" {
		t, err := time.Parse("2006-01-02", row[11])
		if err != nil {
			return nil, fmt.Errorf("invalid last_purchase_at %q", row[11])
		}
		client.LastPurchaseAt = models.NullTime{NullTime: sql.NullTime{Time: t, Valid: true}}
	}
	if row[12] != "" {
		days, err := strconv.Atoi(row[12])
		if err != nil {
			return nil, fmt.Errorf("invalid repurchase_interval_days %q", row[12])
		}
		client.RepurchaseIntervalDays = days
	}

	return client, nil
}

func formatNullFloat(f models.NullFloat) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

func formatNullDate(t models.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format("2006-01-02")
}
