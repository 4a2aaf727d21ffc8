package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/config"
)

// fakeMeteo serves a canned two-day forecast and records the last query.
func fakeMeteo(t *testing.T) (*httptest.Server, *map[string]string) {
	t.Helper()

	lastQuery := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, values := range r.URL.Query() {
			lastQuery[key] = values[0]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"daily": map[string]any{
				"time":                          []string{"2026-08-24", "2026-08-25"},
				"temperature_2m_max":            []float64{31.2, 29.8},
				"temperature_2m_min":            []float64{22.1, 21.4},
				"precipitation_probability_max": []float64{10, 55},
				"wind_speed_10m_max":            []float64{14.3, 19.0},
				"weather_code":                  []int{0, 61},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &lastQuery
}

func newWeather(t *testing.T, baseURL string) *Weather {
	t.Helper()
	v, err := NewWeather(config.AgentSpec{
		Name:       "wx",
		ModulePath: ModuleWeather,
		Options:    map[string]any{"base_url": baseURL, "timeout_seconds": 2},
	})
	require.NoError(t, err)
	return v.(*Weather)
}

func TestWeather_GetForecast(t *testing.T) {
	srv, lastQuery := fakeMeteo(t)
	wx := newWeather(t, srv.URL)

	result, err := wx.Dispatch(context.Background(), "get_forecast",
		map[string]any{"city": "madrid", "days": 2})
	require.NoError(t, err)

	forecast := result.(*ForecastResult)
	assert.Equal(t, "madrid", forecast.City)
	assert.Equal(t, "Open-Meteo API", forecast.Source)
	require.Len(t, forecast.Forecasts, 2)

	day := forecast.Forecasts[0]
	assert.Equal(t, "2026-08-24", day.Date)
	assert.InDelta(t, 31.2, day.TempMax, 1e-9)
	assert.InDelta(t, 22.1, day.TempMin, 1e-9)
	assert.Equal(t, "clear", day.Condition)
	assert.Equal(t, "light rain", forecast.Forecasts[1].Condition)

	// Madrid's coordinates went upstream.
	assert.Equal(t, "40.4168", (*lastQuery)["latitude"])
	assert.Equal(t, "2", (*lastQuery)["forecast_days"])
}

func TestWeather_Defaults(t *testing.T) {
	srv, lastQuery := fakeMeteo(t)
	wx := newWeather(t, srv.URL)

	result, err := wx.Dispatch(context.Background(), "get_forecast", map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, "barcelona", result.(*ForecastResult).City)
	assert.Equal(t, "1", (*lastQuery)["forecast_days"])
}

func TestWeather_DaysClamped(t *testing.T) {
	srv, lastQuery := fakeMeteo(t)
	wx := newWeather(t, srv.URL)

	_, err := wx.Dispatch(context.Background(), "get_forecast",
		map[string]any{"city": "bilbao", "days": 30})
	require.NoError(t, err)
	assert.Equal(t, "7", (*lastQuery)["forecast_days"])

	_, err = wx.Dispatch(context.Background(), "get_forecast",
		map[string]any{"city": "bilbao", "days": -1})
	require.NoError(t, err)
	assert.Equal(t, "1", (*lastQuery)["forecast_days"])
}

func TestWeather_UnknownCity(t *testing.T) {
	srv, _ := fakeMeteo(t)
	wx := newWeather(t, srv.URL)

	_, err := wx.Dispatch(context.Background(), "get_forecast",
		map[string]any{"city": "atlantis"})
	require.Error(t, err)

	var rpcErr *a2a.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Contains(t, rpcErr.Message, "atlantis")
	assert.Contains(t, rpcErr.Message, "barcelona")
}

func TestWeather_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	wx := newWeather(t, srv.URL)

	_, err := wx.Dispatch(context.Background(), "get_forecast",
		map[string]any{"city": "valencia"})
	require.Error(t, err)

	var rpcErr *a2a.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Contains(t, rpcErr.Message, "429")
}

func TestWeather_SupportedCities(t *testing.T) {
	srv, _ := fakeMeteo(t)
	wx := newWeather(t, srv.URL)

	result, err := wx.Dispatch(context.Background(), "supported_cities", nil)
	require.NoError(t, err)

	cities := result.(map[string]any)["cities"].([]string)
	assert.Equal(t, []string{"barcelona", "bilbao", "madrid", "sevilla", "valencia"}, cities)
}

func TestWeather_UnknownMethod(t *testing.T) {
	srv, _ := fakeMeteo(t)
	wx := newWeather(t, srv.URL)

	_, err := wx.Dispatch(context.Background(), "get_tides", nil)
	var rpcErr *a2a.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, a2a.CodeMethodNotFound, rpcErr.Code)
}
