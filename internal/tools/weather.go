package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// WeatherInput is the weather_forecast tool's input schema.
type WeatherInput struct {
	Latitude  float64 `json:"latitude" jsonschema_description:"Latitude of the location."`
	Longitude float64 `json:"longitude" jsonschema_description:"Longitude of the location."`
	Days      int     `json:"days,omitempty" jsonschema_description:"Number of days to forecast, between 1 and 10. Default 5."`
}

// WeatherForecast queries the Beckn weather network and renders the
// catalog for the model. Failures come back as text, never as an error:
// a broken weather service should degrade the answer, not the turn.
func (k *Kit) WeatherForecast(ctx *ai.ToolContext, input WeatherInput) (string, error) {
	days := input.Days
	if days < 1 || days > 10 {
		days = 5
	}

	now := time.Now().UTC()
	payload := map[string]any{
		"context": k.becknContext("advisory:weather:mh-vistaar"),
		"message": map[string]any{
			"intent": map[string]any{
				"category": map[string]any{
					"descriptor": map[string]any{"name": "Weather-Forecast"},
				},
				"item": map[string]any{
					"time": map[string]any{
						"range": map[string]any{
							"start": now.Format("2006-01-02T00:00:00Z"),
							"end":   now.AddDate(0, 0, days).Format("2006-01-02T00:00:00Z"),
						},
					},
				},
				"fulfillment": map[string]any{
					"stops": []map[string]any{
						{"location": map[string]any{"gps": fmt.Sprintf("%v, %v", input.Latitude, input.Longitude)}},
					},
				},
			},
		},
	}

	var parsed becknResponse
	if msg, ok := k.becknSearch(ctx, payload, &parsed); !ok {
		return msg, nil
	}
	return parsed.render("Weather Forecast Data",
		"No weather data found for the requested location."), nil
}

// becknSearch posts payload to the BAP endpoint and decodes into dest.
// On failure it returns a model-facing message and ok=false.
func (k *Kit) becknSearch(ctx *ai.ToolContext, payload map[string]any, dest *becknResponse) (string, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "Request could not be constructed.", false
	}
	req, err := http.NewRequestWithContext(ctx.Context, http.MethodPost, k.bapEndpoint, bytes.NewReader(body))
	if err != nil {
		return "Request could not be constructed.", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		k.logger.Error("beckn search failed", "error", err)
		return "Service request timed out or failed. Try again shortly.", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		k.logger.Error("beckn search returned non-200", "status", resp.StatusCode)
		return "Service unavailable right now.", false
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		k.logger.Error("beckn response decode failed", "error", err)
		return "Service returned an unreadable response.", false
	}
	return "", true
}
