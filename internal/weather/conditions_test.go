package weather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// passthroughSanitizer はテスト用のTextSanitizer実装。入力をそのまま返す。
type passthroughSanitizer struct{}

func (passthroughSanitizer) SanitizeText(raw string) string { return raw }

func conditionsPage(temp, phrase string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><body>
<div class="CurrentConditions">
  <span data-testid="TemperatureValue" class="CurrentConditions--tempValue">%s</span>
  <div data-testid="wxPhrase" class="CurrentConditions--phraseValue">%s</div>
</div>
</body></html>`, temp, phrase)
}

func TestFetcher_FetchConditions_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather/today/l/london-uk" {
			t.Errorf("パス = %s, want /weather/today/l/london-uk", r.URL.Path)
		}
		if unit := r.URL.Query().Get("unit"); unit != "m" {
			t.Errorf("unit = %s, want m（摂氏）", unit)
		}
		io.WriteString(w, conditionsPage("20°", "Sunny"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := NewFetcher(server.Client(), passthroughSanitizer{}, newTestLogger(&buf))
	f.baseURL = server.URL

	reading, err := f.FetchConditions(context.Background(), "london-uk")
	if err != nil {
		t.Fatalf("FetchConditions がエラーを返した: %v", err)
	}
	if reading.PlaceID != "london-uk" {
		t.Errorf("PlaceID = %s, want london-uk", reading.PlaceID)
	}
	if reading.TemperatureCelsius != 20 {
		t.Errorf("気温 = %d, want 20", reading.TemperatureCelsius)
	}
	// 天気は小文字に正規化される
	if reading.WeatherCondition != "sunny" {
		t.Errorf("天気 = %s, want sunny", reading.WeatherCondition)
	}
}

func TestFetcher_FetchConditions_NegativeTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, conditionsPage("-3°", "Snow"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := NewFetcher(server.Client(), passthroughSanitizer{}, newTestLogger(&buf))
	f.baseURL = server.URL

	reading, err := f.FetchConditions(context.Background(), "helsinki-fi")
	if err != nil {
		t.Fatalf("FetchConditions がエラーを返した: %v", err)
	}
	if reading.TemperatureCelsius != -3 {
		t.Errorf("気温 = %d, want -3", reading.TemperatureCelsius)
	}
	if reading.WeatherCondition != "snow" {
		t.Errorf("天気 = %s, want snow", reading.WeatherCondition)
	}
}

func TestFetcher_FetchConditions_MissingTemperature_IsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><p>maintenance</p></body></html>`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := NewFetcher(server.Client(), passthroughSanitizer{}, newTestLogger(&buf))
	f.baseURL = server.URL

	_, err := f.FetchConditions(context.Background(), "paris-fr")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	// 失敗時は対象のplaceIDが特定できること
	if reqErr.PlaceID != "paris-fr" {
		t.Errorf("PlaceID = %s, want paris-fr", reqErr.PlaceID)
	}
}

func TestFetcher_FetchConditions_ErrorStatus_IsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := NewFetcher(server.Client(), passthroughSanitizer{}, newTestLogger(&buf))
	f.baseURL = server.URL

	_, err := f.FetchConditions(context.Background(), "gone")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if reqErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", reqErr.StatusCode)
	}
}

func TestFetcher_FetchConditions_UnparsableTemperature_IsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, conditionsPage("--", "Cloudy"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := NewFetcher(server.Client(), passthroughSanitizer{}, newTestLogger(&buf))
	f.baseURL = server.URL

	_, err := f.FetchConditions(context.Background(), "x1")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
}

func TestParseTemperature(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"20°", 20, false},
		{"0°", 0, false},
		{"-12°", -12, false},
		{" 7° ", 7, false},
		{"15", 15, false},
		{"--", 0, true},
		{"", 0, true},
		{"warm", 0, true},
	}

	for _, tt := range tests {
		got, err := parseTemperature(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTemperature(%q) はエラーを返すべき", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTemperature(%q) がエラーを返した: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTemperature(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
