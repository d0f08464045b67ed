package city

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/tenkiman/internal/model"
	"github.com/hitoshi/tenkiman/internal/weather"
)

// stubUserRepo はUserRepositoryのスタブ実装。
type stubUserRepo struct {
	users map[string]*model.User
}

func (r *stubUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.users[id], nil
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (r *stubUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (r *stubUserRepo) UpdateWeatherIDToken(ctx context.Context, userID, idToken string) error {
	return nil
}

func (r *stubUserRepo) ListWithWeatherToken(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}

// stubCityRepo はCityRepositoryのスタブ実装。
type stubCityRepo struct {
	upserted  []*model.City
	upsertErr error
	listed    []*model.City
}

func (r *stubCityRepo) UpsertByName(ctx context.Context, city *model.City) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserted = append(r.upserted, city)
	return nil
}

func (r *stubCityRepo) List(ctx context.Context) ([]*model.City, error) {
	return r.listed, nil
}

func (r *stubCityRepo) FindByName(ctx context.Context, name string) (*model.City, error) {
	return nil, nil
}

// stubWeatherClient はWeatherClientのスタブ実装。
type stubWeatherClient struct {
	favorites []model.Location
	getErr    error
	added     []model.Location
	addErr    error
	gotToken  string
	gotNames  []string
}

func (c *stubWeatherClient) GetFavoriteCities(ctx context.Context, idToken string) ([]model.Location, error) {
	c.gotToken = idToken
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.favorites, nil
}

func (c *stubWeatherClient) AddFavoriteCities(ctx context.Context, idToken string, cityNames []string) ([]model.Location, error) {
	c.gotToken = idToken
	c.gotNames = cityNames
	if c.addErr != nil {
		return nil, c.addErr
	}
	return c.added, nil
}

// stubMerger は各都市に固定の天気を付与するWeatherMergerのスタブ実装。
type stubMerger struct {
	readings map[string]model.WeatherReading
}

func (m *stubMerger) MergeWeather(ctx context.Context, locations []model.Location) []model.CityWeather {
	results := make([]model.CityWeather, len(locations))
	for i, loc := range locations {
		results[i] = model.CityWeather{Location: loc}
		if reading, ok := m.readings[loc.PlaceID]; ok {
			results[i].TemperatureCelsius = reading.TemperatureCelsius
			results[i].WeatherCondition = reading.WeatherCondition
			results[i].HasReading = true
		}
	}
	return results
}

// nopMetrics は何もしないメトリクスコレクター。
type nopMetrics struct{}

func (nopMetrics) RecordWeatherLoginSuccess()                       {}
func (nopMetrics) RecordWeatherLoginFailure()                       {}
func (nopMetrics) RecordResolutionFailure(city string)              {}
func (nopMetrics) RecordWeatherFetchSuccess()                       {}
func (nopMetrics) RecordWeatherFetchFailure(reason string)          {}
func (nopMetrics) RecordWeatherFetchLatency(duration time.Duration) {}
func (nopMetrics) RecordCitiesSynced(count int)                     {}
func (nopMetrics) RecordChatRequest(kind string)                    {}

func newTestService(users *stubUserRepo, cities *stubCityRepo, client *stubWeatherClient, merger *stubMerger) *Service {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	return NewService(users, cities, client, merger, nopMetrics{}, logger)
}

func userWithToken() *stubUserRepo {
	return &stubUserRepo{users: map[string]*model.User{
		"user-1": {ID: "user-1", Email: "test@example.com", WeatherIDToken: "id-token"},
		"user-2": {ID: "user-2", Email: "no-session@example.com"},
	}}
}

// TestListFavorites はお気に入り都市に天気がマージされて返ることを検証する。
func TestListFavorites(t *testing.T) {
	client := &stubWeatherClient{favorites: []model.Location{
		{Name: "London", PlaceID: "p1", Position: 1},
		{Name: "Paris", PlaceID: "p2", Position: 2},
	}}
	merger := &stubMerger{readings: map[string]model.WeatherReading{
		"p1": {TemperatureCelsius: 22, WeatherCondition: "sunny"},
		"p2": {TemperatureCelsius: 15, WeatherCondition: "rainy"},
	}}
	service := newTestService(userWithToken(), &stubCityRepo{}, client, merger)

	got, err := service.ListFavorites(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListFavorites returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cities = %d, want 2", len(got))
	}
	if got[0].Name != "London" || got[0].TemperatureCelsius != 22 || !got[0].HasReading {
		t.Errorf("unexpected first city: %+v", got[0])
	}
	// 保存済みトークンがクライアントに渡されること
	if client.gotToken != "id-token" {
		t.Errorf("token = %q, want %q", client.gotToken, "id-token")
	}
}

// TestListFavorites_NoSession はセッション未確立ユーザーでErrUnauthenticatedが返ることを検証する。
func TestListFavorites_NoSession(t *testing.T) {
	client := &stubWeatherClient{}
	service := newTestService(userWithToken(), &stubCityRepo{}, client, &stubMerger{})

	_, err := service.ListFavorites(context.Background(), "user-2")
	if !errors.Is(err, weather.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if client.gotToken != "" {
		t.Error("client must not be called without a session token")
	}
}

// TestListFavorites_UnknownUser は存在しないユーザーでErrUnauthenticatedが返ることを検証する。
func TestListFavorites_UnknownUser(t *testing.T) {
	service := newTestService(userWithToken(), &stubCityRepo{}, &stubWeatherClient{}, &stubMerger{})

	_, err := service.ListFavorites(context.Background(), "nobody")
	if !errors.Is(err, weather.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

// TestAddFavorites は都市追加後に全お気に入りへ天気がマージされて返ることを検証する。
func TestAddFavorites(t *testing.T) {
	client := &stubWeatherClient{added: []model.Location{
		{Name: "London", PlaceID: "p1", Position: 1},
		{Name: "Madrid", PlaceID: "p3", Position: 2},
	}}
	merger := &stubMerger{readings: map[string]model.WeatherReading{
		"p3": {TemperatureCelsius: 30, WeatherCondition: "sunny"},
	}}
	service := newTestService(userWithToken(), &stubCityRepo{}, client, merger)

	got, err := service.AddFavorites(context.Background(), "user-1", []string{"Madrid"})
	if err != nil {
		t.Fatalf("AddFavorites returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cities = %d, want 2", len(got))
	}
	if len(client.gotNames) != 1 || client.gotNames[0] != "Madrid" {
		t.Errorf("names = %v, want [Madrid]", client.gotNames)
	}
	// 追加できなかった都市（既存London）はHasReading=falseで返る
	if got[0].HasReading {
		t.Errorf("expected no reading for %s", got[0].Name)
	}
	if !got[1].HasReading || got[1].TemperatureCelsius != 30 {
		t.Errorf("unexpected second city: %+v", got[1])
	}
}

// TestAddFavorites_ResolutionFailure は解決失敗エラーがそのまま伝播することを検証する。
func TestAddFavorites_ResolutionFailure(t *testing.T) {
	reqErr := &weather.RequestError{Op: "resolve", FailedCities: []string{"Atlantis"}, Err: weather.ErrCityNotFound}
	client := &stubWeatherClient{addErr: reqErr}
	service := newTestService(userWithToken(), &stubCityRepo{}, client, &stubMerger{})

	_, err := service.AddFavorites(context.Background(), "user-1", []string{"Atlantis"})
	var got *weather.RequestError
	if !errors.As(err, &got) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if len(got.FailedCities) != 1 || got.FailedCities[0] != "Atlantis" {
		t.Errorf("FailedCities = %v, want [Atlantis]", got.FailedCities)
	}
}

// TestSyncFavorites は天気が取得できた都市のみキャッシュに保存されることを検証する。
func TestSyncFavorites(t *testing.T) {
	client := &stubWeatherClient{favorites: []model.Location{
		{Name: "London", PlaceID: "p1", Position: 1},
		{Name: "Paris", PlaceID: "p2", Position: 2},
		{Name: "Berlin", PlaceID: "p3", Position: 3},
	}}
	merger := &stubMerger{readings: map[string]model.WeatherReading{
		"p1": {TemperatureCelsius: 22, WeatherCondition: "sunny"},
		"p3": {TemperatureCelsius: 18, WeatherCondition: "cloudy"},
	}}
	cities := &stubCityRepo{}
	service := newTestService(userWithToken(), cities, client, merger)

	synced, err := service.SyncFavorites(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SyncFavorites returned error: %v", err)
	}
	if synced != 2 {
		t.Errorf("synced = %d, want 2", synced)
	}
	if len(cities.upserted) != 2 {
		t.Fatalf("upserted = %d, want 2", len(cities.upserted))
	}
	if cities.upserted[0].Name != "London" || cities.upserted[0].Temperature != 22 {
		t.Errorf("unexpected first upsert: %+v", cities.upserted[0])
	}
	if cities.upserted[1].Name != "Berlin" || cities.upserted[1].WeatherCondition != "cloudy" {
		t.Errorf("unexpected second upsert: %+v", cities.upserted[1])
	}
}

// TestSyncFavorites_FetchError は取得失敗時に何も保存されないことを検証する。
func TestSyncFavorites_FetchError(t *testing.T) {
	client := &stubWeatherClient{getErr: &weather.RequestError{Op: "preferences", StatusCode: 502}}
	cities := &stubCityRepo{}
	service := newTestService(userWithToken(), cities, client, &stubMerger{})

	if _, err := service.SyncFavorites(context.Background(), "user-1"); err == nil {
		t.Error("expected error for fetch failure")
	}
	if len(cities.upserted) != 0 {
		t.Errorf("upserted = %d, want 0", len(cities.upserted))
	}
}

// TestListCached はキャッシュ済み都市リストが返ることを検証する。
func TestListCached(t *testing.T) {
	cities := &stubCityRepo{listed: []*model.City{
		{Name: "London", Temperature: 22, WeatherCondition: "sunny"},
	}}
	service := newTestService(userWithToken(), cities, &stubWeatherClient{}, &stubMerger{})

	got, err := service.ListCached(context.Background())
	if err != nil {
		t.Fatalf("ListCached returned error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "London" {
		t.Errorf("unexpected cities: %+v", got)
	}
}
