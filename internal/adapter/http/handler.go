package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/gin-gonic/gin"
)

type alertsResponse struct {
	RunID       string                  `json:"run_id,omitempty"`
	GeneratedAt time.Time               `json:"generated_at"`
	ThresholdKm float64                 `json:"threshold_km"`
	Types       []string                `json:"types"`
	Count       int                     `json:"count"`
	Alerts      []domain.ProximityAlert `json:"alerts"`
}

// handleAlerts returns the latest monitor snapshot, or evaluates on demand
// when threshold_km or types is given.
func (s *Server) handleAlerts(c *gin.Context) {
	rawThreshold, hasThreshold := c.GetQuery("threshold_km")
	types, hasTypes := queryTypes(c)

	if !hasThreshold && !hasTypes {
		snap, ok := s.alerts.Latest()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no monitor cycle has completed yet"})
			return
		}
		c.JSON(http.StatusOK, alertsResponse{
			RunID:       snap.RunID,
			GeneratedAt: snap.GeneratedAt,
			ThresholdKm: snap.ThresholdKm,
			Types:       snap.Types,
			Count:       len(snap.Alerts),
			Alerts:      snap.Alerts,
		})
		return
	}

	threshold := s.alerts.Threshold()
	if hasThreshold {
		t, err := domain.ParseThreshold(rawThreshold)
		if err != nil {
			s.writeError(c, err)
			return
		}
		threshold = t
	}

	alerts, err := s.alerts.Evaluate(c.Request.Context(), threshold, types)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alertsResponse{
		GeneratedAt: domain.Now(),
		ThresholdKm: threshold,
		Types:       types,
		Count:       len(alerts),
		Alerts:      alerts,
	})
}

func (s *Server) handlePersons(c *gin.Context) {
	persons, err := s.persons.ListPersons(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	valid := 0
	for _, p := range persons {
		if p.IsValid {
			valid++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(persons),
		"valid":    valid,
		"fallback": len(persons) - valid,
		"persons":  persons,
	})
}

func (s *Server) handleDisasters(c *gin.Context) {
	types, _ := queryTypes(c)
	disasters, err := s.alerts.Disasters(c.Request.Context(), types)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(disasters), "disasters": disasters})
}

func (s *Server) handleTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": s.alerts.Types()})
}

// handleMap returns persons and disasters as one GeoJSON FeatureCollection.
func (s *Server) handleMap(c *gin.Context) {
	types, _ := queryTypes(c)
	disasters, err := s.alerts.Disasters(c.Request.Context(), types)
	if err != nil {
		s.writeError(c, err)
		return
	}
	persons, err := s.persons.ListPersons(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(persons, disasters))
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidThreshold), errors.Is(err, domain.ErrUnknownCategoryType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("api request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// queryTypes parses a comma-separated types parameter. It reports whether
// the parameter was present; a present but empty value is an empty selection.
func queryTypes(c *gin.Context) ([]string, bool) {
	raw, ok := c.GetQuery("types")
	if !ok {
		return nil, false
	}
	types := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types, true
}
