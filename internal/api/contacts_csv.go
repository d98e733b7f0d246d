package api

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strings"
	"time"

	"whatsapp-console/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"
)

// contactExportRow is the CSV shape for export; import accepts the same
// headers plus the aliases importHeaderAliases knows about.
type contactExportRow struct {
	Name          string `csv:"Name"`
	PhoneNumber   string `csv:"Phone Number"`
	Company       string `csv:"Company"`
	Position      string `csv:"Position"`
	Status        string `csv:"Status"`
	LastContacted string `csv:"Last Contacted"`
	ImportedAt    string `csv:"Imported At"`
}

type contactImportRow struct {
	Name        string `csv:"name"`
	PhoneNumber string `csv:"phone_number"`
	Company     string `csv:"company"`
	Position    string `csv:"position"`
	Status      string `csv:"status"`
}

// importHeaderAliases maps header cells, lowercased with spaces and
// underscores removed, to the canonical import column names.
var importHeaderAliases = map[string]string{
	"name":        "name",
	"phonenumber": "phone_number",
	"phone":       "phone_number",
	"company":     "company",
	"position":    "position",
	"status":      "status",
}

type importRequest struct {
	CSVData string `json:"csvData" binding:"required"`
}

func (h *ContactHandler) Import(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	normalized, err := canonicalizeHeaders(req.CSVData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CSV format"})
		return
	}

	var rows []contactImportRow
	if err := gocsv.UnmarshalString(normalized, &rows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CSV format"})
		return
	}

	now := time.Now()
	imported := make([]models.Contact, 0, len(rows))
	for _, row := range rows {
		if row.Name == "" && row.PhoneNumber == "" {
			continue
		}
		status := row.Status
		if status == "" {
			status = "active"
		}
		contact := models.Contact{
			Name:         row.Name,
			PhoneNumber:  row.PhoneNumber,
			Company:      row.Company,
			Position:     row.Position,
			Status:       status,
			ImportedFrom: "CSV",
			ImportedAt:   &now,
		}
		if err := h.DB.Create(&contact).Error; err != nil {
			writeError(c, err, "Error importing contacts")
			return
		}
		imported = append(imported, contact)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"imported": imported,
		"count":    len(imported),
	}})
}

func (h *ContactHandler) ExportCSV(c *gin.Context) {
	var contacts []models.Contact
	if err := h.DB.Order("created_at DESC").Find(&contacts).Error; err != nil {
		writeError(c, err, "Error exporting contacts")
		return
	}

	rows := make([]contactExportRow, 0, len(contacts))
	for _, contact := range contacts {
		row := contactExportRow{
			Name:        contact.Name,
			PhoneNumber: contact.PhoneNumber,
			Company:     contact.Company,
			Position:    contact.Position,
			Status:      contact.Status,
		}
		if contact.LastContacted != nil {
			row.LastContacted = contact.LastContacted.Format(time.RFC3339)
		}
		if contact.ImportedAt != nil {
			row.ImportedAt = contact.ImportedAt.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		writeError(c, err, "Error exporting contacts")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.String(http.StatusOK, out)
}

// canonicalizeHeaders rewrites the CSV header row so import accepts both
// the export headers ("Phone Number") and the common lowercase variants.
func canonicalizeHeaders(data string) (string, error) {
	reader := csv.NewReader(strings.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return data, nil
	}

	header := records[0]
	for i, cell := range header {
		key := strings.ToLower(cell)
		key = strings.ReplaceAll(key, " ", "")
		key = strings.ReplaceAll(key, "_", "")
		if canonical, ok := importHeaderAliases[key]; ok {
			header[i] = canonical
		}
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(records); err != nil {
		return "", err
	}
	writer.Flush()
	return buf.String(), writer.Error()
}
