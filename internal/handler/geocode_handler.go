package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/moodmap/internal/geocode"
	"github.com/hitoshi/moodmap/internal/middleware"
	"github.com/hitoshi/moodmap/internal/model"
)

// ReverseGeocoder は座標から住所を求めるインターフェース。
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// GeocodeHandler は逆ジオコーディングのHTTPハンドラー。
type GeocodeHandler struct {
	geocoder ReverseGeocoder
}

// NewGeocodeHandler はGeocodeHandlerを生成する。
func NewGeocodeHandler(geocoder ReverseGeocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

type addressResponse struct {
	Address string `json:"address"`
}

// ReverseGeocode は座標に対応する住所を返す。住所がない場合は空文字を返す。
// GET /api/reverse-geocode?lat=&lng=
func (h *GeocodeHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	area, apiErr := parseArea(r.URL.Query(), true, defaultAreaRadiusKm)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	address, err := h.geocoder.ReverseGeocode(r.Context(), area.Latitude, area.Longitude)
	switch {
	case err == nil:
	case errors.Is(err, geocode.ErrAddressNotFound):
		address = ""
	default:
		slog.Warn("reverse geocode failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewGeocodeUnavailableError())
		return
	}

	writeJSON(w, http.StatusOK, addressResponse{Address: address})
}
