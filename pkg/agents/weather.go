package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/config"
)

// defaultMeteoURL is the Open-Meteo forecast endpoint (free, no API key).
const defaultMeteoURL = "https://api.open-meteo.com/v1/forecast"

// cityCoords maps the supported cities to coordinates.
var cityCoords = map[string]struct{ Lat, Lon float64 }{
	"barcelona": {41.3879, 2.1699},
	"madrid":    {40.4168, -3.7038},
	"valencia":  {39.4699, -0.3763},
	"sevilla":   {37.3891, -5.9845},
	"bilbao":    {43.2627, -2.9253},
}

// wmoConditions maps WMO weather codes to descriptions.
var wmoConditions = map[int]string{
	0: "clear", 1: "mostly clear", 2: "partly cloudy", 3: "overcast",
	45: "fog", 48: "freezing fog",
	51: "light drizzle", 53: "moderate drizzle", 55: "dense drizzle",
	61: "light rain", 63: "moderate rain", 65: "heavy rain",
	71: "light snow", 73: "moderate snow", 75: "heavy snow",
	80: "light showers", 81: "moderate showers", 82: "heavy showers",
	95: "thunderstorm",
}

// Weather serves forecasts from the Open-Meteo API.
type Weather struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

type weatherOptions struct {
	// BaseURL overrides the forecast endpoint, mainly for tests.
	BaseURL string `mapstructure:"base_url"`
	// TimeoutSeconds bounds the upstream request. Default 10s.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// NewWeather is the builtin.weather factory.
func NewWeather(spec config.AgentSpec) (any, error) {
	var opts weatherOptions
	if err := decodeOptions(spec.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid weather options: %w", err)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultMeteoURL
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 10
	}
	return &Weather{
		name:       spec.Name,
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: time.Duration(opts.TimeoutSeconds) * time.Second},
	}, nil
}

func (a *Weather) Card() *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:         a.name,
		Description:  "Weather forecasts via the Open-Meteo API",
		Version:      "1.0.0",
		Capabilities: []string{"get_forecast", "supported_cities"},
	}
}

func (a *Weather) Probe(ctx context.Context) error {
	return nil
}

// DayForecast is one day of forecast data.
type DayForecast struct {
	Date              string  `json:"date"`
	TempMax           float64 `json:"temp_max"`
	TempMin           float64 `json:"temp_min"`
	Condition         string  `json:"condition"`
	PrecipitationProb float64 `json:"precipitation_prob"`
	WindSpeed         float64 `json:"wind_speed"`
}

// ForecastResult is the get_forecast response shape.
type ForecastResult struct {
	City      string        `json:"city"`
	Forecasts []DayForecast `json:"forecasts"`
	Source    string        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
}

func (a *Weather) Dispatch(ctx context.Context, method string, params map[string]any) (any, error) {
	switch method {
	case "get_forecast":
		var args struct {
			City string `mapstructure:"city"`
			Days int    `mapstructure:"days"`
		}
		if err := decodeParams(params, &args); err != nil {
			return nil, err
		}
		if args.City == "" {
			args.City = "barcelona"
		}
		if args.Days < 1 {
			args.Days = 1
		}
		if args.Days > 7 {
			args.Days = 7
		}
		return a.getForecast(ctx, args.City, args.Days)

	case "supported_cities":
		return map[string]any{"cities": supportedCities()}, nil

	default:
		return nil, a2a.NewMethodNotFound(method)
	}
}

// meteoResponse is the subset of the Open-Meteo payload we consume.
type meteoResponse struct {
	Daily struct {
		Time                        []string  `json:"time"`
		TemperatureMax              []float64 `json:"temperature_2m_max"`
		TemperatureMin              []float64 `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max"`
		WindSpeedMax                []float64 `json:"wind_speed_10m_max"`
		WeatherCode                 []int     `json:"weather_code"`
	} `json:"daily"`
}

func (a *Weather) getForecast(ctx context.Context, city string, days int) (any, error) {
	coords, ok := cityCoords[strings.ToLower(city)]
	if !ok {
		return nil, a2a.NewApplicationError(a2a.CodeApplicationMax,
			fmt.Sprintf("city %q not found, available: %s", city, strings.Join(supportedCities(), ", ")))
	}

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.4f", coords.Lat))
	query.Set("longitude", fmt.Sprintf("%.4f", coords.Lon))
	query.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,wind_speed_10m_max,weather_code")
	query.Set("forecast_days", fmt.Sprintf("%d", days))
	query.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, a2a.NewApplicationError(a2a.CodeApplicationMax, fmt.Sprintf("failed to fetch weather: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a2a.NewApplicationError(a2a.CodeApplicationMax,
			fmt.Sprintf("weather upstream returned %d", resp.StatusCode))
	}

	var payload meteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, a2a.NewApplicationError(a2a.CodeApplicationMax, fmt.Sprintf("failed to decode weather payload: %v", err))
	}

	daily := payload.Daily
	count := len(daily.Time)
	if count > days {
		count = days
	}

	forecasts := make([]DayForecast, 0, count)
	for i := 0; i < count; i++ {
		condition := "unknown"
		if i < len(daily.WeatherCode) {
			if c, ok := wmoConditions[daily.WeatherCode[i]]; ok {
				condition = c
			}
		}
		forecast := DayForecast{Date: daily.Time[i], Condition: condition}
		if i < len(daily.TemperatureMax) {
			forecast.TempMax = daily.TemperatureMax[i]
		}
		if i < len(daily.TemperatureMin) {
			forecast.TempMin = daily.TemperatureMin[i]
		}
		if i < len(daily.PrecipitationProbabilityMax) {
			forecast.PrecipitationProb = daily.PrecipitationProbabilityMax[i]
		}
		if i < len(daily.WindSpeedMax) {
			forecast.WindSpeed = daily.WindSpeedMax[i]
		}
		forecasts = append(forecasts, forecast)
	}

	return &ForecastResult{
		City:      city,
		Forecasts: forecasts,
		Source:    "Open-Meteo API",
		Timestamp: time.Now(),
	}, nil
}

func supportedCities() []string {
	cities := make([]string, 0, len(cityCoords))
	for city := range cityCoords {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}
