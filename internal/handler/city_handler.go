package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/tenkiman/internal/middleware"
	"github.com/hitoshi/tenkiman/internal/model"
	"github.com/hitoshi/tenkiman/internal/weather"
)

// CityServiceInterface は都市ハンドラーが必要とするサービスインターフェース。
type CityServiceInterface interface {
	// ListFavorites はお気に入り都市に天気をマージして返す。
	ListFavorites(ctx context.Context, userID string) ([]model.CityWeather, error)
	// AddFavorites は都市名を解決してお気に入りに追加する。
	AddFavorites(ctx context.Context, userID string, names []string) ([]model.CityWeather, error)
	// SyncFavorites はお気に入り都市の天気をローカルキャッシュに保存する。
	SyncFavorites(ctx context.Context, userID string) (int, error)
	// ListCached はローカルの都市天気キャッシュを返す。
	ListCached(ctx context.Context) ([]*model.City, error)
}

// CityHandler はお気に入り都市管理のHTTPハンドラー。
type CityHandler struct {
	service  CityServiceInterface
	validate *validator.Validate
}

// NewCityHandler はCityHandlerを生成する。
func NewCityHandler(service CityServiceInterface) *CityHandler {
	return &CityHandler{
		service:  service,
		validate: validator.New(),
	}
}

// addFavoritesRequest はお気に入り都市追加リクエストのボディ。
type addFavoritesRequest struct {
	Cities []string `json:"cities" validate:"required,min=1,dive,required"`
}

// cityWeatherResponse は都市+天気のAPIレスポンス。
// 天気が取得できなかった都市はtemperatureとweather_conditionがnullになる。
type cityWeatherResponse struct {
	Name             string  `json:"name"`
	PlaceID          string  `json:"place_id"`
	Position         int     `json:"position"`
	Temperature      *int    `json:"temperature"`
	WeatherCondition *string `json:"weather_condition"`
}

// favoritesResponse はお気に入り都市一覧のAPIレスポンス。
type favoritesResponse struct {
	Cities []cityWeatherResponse `json:"cities"`
}

// syncResponse は同期結果のAPIレスポンス。
type syncResponse struct {
	Synced int `json:"synced"`
}

// cachedCityResponse はキャッシュ済み都市のAPIレスポンス。
type cachedCityResponse struct {
	Name             string `json:"name"`
	Temperature      int    `json:"temperature"`
	WeatherCondition string `json:"weather_condition"`
}

// ListFavorites はお気に入り都市一覧を天気付きで返す。
// GET /api/v1/cities/favorites
func (h *CityHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	cities, err := h.service.ListFavorites(r.Context(), userID)
	if err != nil {
		handleWeatherError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFavoritesResponse(cities))
}

// AddFavorites はお気に入り都市を追加する。
// POST /api/v1/cities/favorites
func (h *CityHandler) AddFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	var req addFavoritesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("JSONの解析に失敗しました"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(err.Error()))
		return
	}

	cities, err := h.service.AddFavorites(r.Context(), userID, req.Cities)
	if err != nil {
		handleWeatherError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFavoritesResponse(cities))
}

// Sync はお気に入り都市の天気をローカルキャッシュに同期する。
// POST /api/v1/cities/favorites/sync
func (h *CityHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	synced, err := h.service.SyncFavorites(r.Context(), userID)
	if err != nil {
		handleWeatherError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(syncResponse{Synced: synced})
}

// ListCached はローカルの都市天気キャッシュを返す。
// GET /api/v1/cities
func (h *CityHandler) ListCached(w http.ResponseWriter, r *http.Request) {
	cities, err := h.service.ListCached(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]cachedCityResponse, 0, len(cities))
	for _, city := range cities {
		resp = append(resp, cachedCityResponse{
			Name:             city.Name,
			Temperature:      city.Temperature,
			WeatherCondition: city.WeatherCondition,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toFavoritesResponse はCityWeatherのスライスをAPIレスポンスに変換する。
func toFavoritesResponse(cities []model.CityWeather) favoritesResponse {
	resp := favoritesResponse{Cities: make([]cityWeatherResponse, 0, len(cities))}
	for _, cw := range cities {
		entry := cityWeatherResponse{
			Name:     cw.Name,
			PlaceID:  cw.PlaceID,
			Position: cw.Position,
		}
		if cw.HasReading {
			temp := cw.TemperatureCelsius
			cond := cw.WeatherCondition
			entry.Temperature = &temp
			entry.WeatherCondition = &cond
		}
		resp.Cities = append(resp.Cities, entry)
	}
	return resp
}

// handleWeatherError はweatherパッケージのエラー分類をHTTPレスポンスに変換する。
func handleWeatherError(w http.ResponseWriter, err error) {
	if errors.Is(err, weather.ErrUnauthenticated) {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewWeatherUnauthenticatedError())
		return
	}
	if errors.Is(err, weather.ErrInvalidCredentials) {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewWeatherAuthFailedError())
		return
	}

	var reqErr *weather.RequestError
	if errors.As(err, &reqErr) {
		if len(reqErr.FailedCities) > 0 {
			writeAPIErrorResponse(w, http.StatusNotFound,
				model.NewCityNotResolvedError(strings.Join(reqErr.FailedCities, ", ")))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadGateway,
			model.NewWeatherRequestFailedError(reqErr.Op))
		return
	}

	handleServiceError(w, err)
}
