package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/EllieBekrian/cab432/internal/cache"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ErrNoAPIKey = errors.New("weather api key is not set")

// Weather proxies current-conditions lookups to OpenWeather. It's
// unrelated to the upload flow but shares the cache layer, with a
// shorter TTL because conditions go stale fast.
type Weather struct {
	Cache  Cache
	Client *http.Client
	APIKey string
	base   string
}

func NewWeather(c Cache) *Weather {
	return &Weather{
		Cache:  c,
		Client: &http.Client{Timeout: 10 * time.Second},
		APIKey: viper.GetString("weather.api_key"),
		base:   "https://api.openweathermap.org/data/2.5/weather",
	}
}

// Current returns the weather payload for city, cached for 5 minutes.
func (w *Weather) Current(ctx context.Context, city string) (json.RawMessage, error) {
	if w.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	key := cache.WeatherKey(strings.ToLower(city))

	if raw, ok := w.Cache.Get(ctx, key); ok {
		zap.L().Debug("Weather cache hit", zap.String("city", city))
		return raw, nil
	}

	u := fmt.Sprintf("%s?q=%s&appid=%s&units=metric", w.base, url.QueryEscape(city), w.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach weather api, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather api returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response, %w", err)
	}

	w.Cache.Set(ctx, key, raw, cache.WeatherTTL)

	return raw, nil
}
