package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/halcyon-security/breachradar/internal/adapter/exporter"
	"github.com/halcyon-security/breachradar/internal/core/domain"
	"github.com/halcyon-security/breachradar/internal/core/ports"
)

const (
	defaultRecentWindow = 24 * time.Hour
	defaultResultLimit  = 100
	maxResultLimit      = 1000
)

type RestHandler struct {
	repo        ports.ItemRepository
	csvExporter *exporter.CSVExporter
}

func NewRestHandler(repo ports.ItemRepository) *RestHandler {
	return &RestHandler{
		repo:        repo,
		csvExporter: exporter.NewCSVExporter(repo),
	}
}

// Health check endpoint
func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "breachradar-api",
	}
	writeJSON(w, http.StatusOK, response)
}

// CheckItem reports whether a link has already been ingested.
func (h *RestHandler) CheckItem(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		writeError(w, http.StatusBadRequest, "missing 'link' parameter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	exists, err := h.repo.Exists(ctx, link)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exists": exists,
		"link":   link,
	})
}

// RecentItems returns items ingested within a time window.
func (h *RestHandler) RecentItems(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'since' parameter (use format like '24h', '168h')")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	items, err := h.repo.FindSince(ctx, since, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"since": since.UTC().Format(time.RFC3339),
		"count": len(items),
		"items": itemsJSON(items),
	})
}

// SearchByOrganization returns items matching an organization name.
func (h *RestHandler) SearchByOrganization(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("org")
	if org == "" {
		writeError(w, http.StatusBadRequest, "missing 'org' parameter")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	items, err := h.repo.FindByOrganization(ctx, org, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization": org,
		"count":        len(items),
		"items":        itemsJSON(items),
	})
}

// GetFeed exports recent incidents for downstream tooling.
func (h *RestHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")

	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'since' parameter (use format like '24h', '168h')")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	switch format {
	case "csv", "":
		data, err := h.csvExporter.Export(ctx, since, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to export CSV feed")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="breachradar-feed.csv"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(data)); err != nil {
			log.Printf("Error writing CSV feed response: %v", err)
		}

	case "json":
		items, err := h.repo.FindSince(ctx, since, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to export JSON feed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count": len(items),
			"items": itemsJSON(items),
		})

	default:
		writeError(w, http.StatusBadRequest, "unsupported format (use 'csv' or 'json')")
	}
}

// Helper functions

func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().Add(-defaultRecentWindow), nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(-duration), nil
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultResultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultResultLimit
	}
	if limit > maxResultLimit {
		return maxResultLimit
	}
	return limit
}

func itemsJSON(items []domain.Item) []map[string]interface{} {
	result := make([]map[string]interface{}, len(items))
	for i, item := range items {
		entry := map[string]interface{}{
			"link":          item.Link,
			"title":         item.Title,
			"summary":       item.Summary,
			"source_id":     item.SourceID,
			"confidence":    item.Confidence,
			"keywords":      item.Keywords,
			"organization":  item.Organization,
			"data_types":    item.DataTypes,
			"incident_date": item.IncidentDate,
			"leak_summary":  item.LeakSummary,
			"published_at":  item.PublishedAt.UTC().Format(time.RFC3339),
			"date_ingested": item.DateIngested.UTC().Format(time.RFC3339),
		}
		if item.Affected != nil {
			entry["affected"] = *item.Affected
		}
		result[i] = entry
	}
	return result
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
