package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/firebase/genkit/go/ai"
)

// mockLocations is the fast path for common agricultural districts and
// market towns. Hitting it avoids a network round trip and keeps the
// tool working when the geocoding service is unreachable.
var mockLocations = map[string][2]float64{
	// Maharashtra
	"mumbai":      {19.0760, 72.8777},
	"navi mumbai": {19.0330, 73.0297},
	"pune":        {18.5204, 73.8567},
	"nagpur":      {21.1458, 79.0882},
	"nashik":      {19.9975, 73.7898},
	"aurangabad":  {19.8762, 75.3433},
	"solapur":     {17.6599, 75.9064},
	"kolhapur":    {16.7050, 74.2433},
	"amravati":    {20.9374, 77.7796},
	"jalgaon":     {21.0077, 75.5626},
	"akola":       {20.7002, 77.0082},
	"latur":       {18.4088, 76.5604},
	"dhule":       {20.9042, 74.7749},
	"ahmednagar":  {19.0952, 74.7496},
	"chandrapur":  {19.9615, 79.2961},
	"parbhani":    {19.2644, 76.6413},
	"jalna":       {19.8297, 75.8800},
	"bhusawal":    {21.0455, 75.8011},
	"panvel":      {18.9894, 73.1175},
	// Tamil Nadu
	"chennai":         {13.0827, 80.2707},
	"coimbatore":      {11.0168, 76.9558},
	"madurai":         {9.9252, 78.1198},
	"salem":           {11.6643, 78.1460},
	"tiruchirappalli": {10.7905, 78.7047},
	"trichy":          {10.7905, 78.7047},
	"thanjavur":       {10.7870, 79.1378},
	"puducherry":      {11.9139, 79.8145},
	"erode":           {11.3410, 77.7172},
	"vellore":         {12.9165, 79.1325},
	"tirunelveli":     {8.7139, 77.7567},
	"thoothukudi":     {8.7642, 78.1348},
	"dindigul":        {10.3673, 77.9803},
}

// GeocodeInput is the resolve_location tool's input schema.
type GeocodeInput struct {
	PlaceName string `json:"place_name" jsonschema_description:"Village, taluka, district, or city name to resolve."`
}

// Location is a resolved place.
type Location struct {
	PlaceName string  `json:"place_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s (Latitude: %v, Longitude: %v)", l.PlaceName, l.Latitude, l.Longitude)
}

// round3 keeps coordinates at street-level precision; finer digits are
// noise for advisory purposes.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ResolveLocation resolves a place name to coordinates, trying the mock
// table first and falling back to Nominatim restricted to India.
func (k *Kit) ResolveLocation(ctx *ai.ToolContext, input GeocodeInput) (string, error) {
	place := strings.TrimSpace(input.PlaceName)
	if place == "" {
		return "No place name given.", nil
	}

	if loc, ok := lookupMock(place); ok {
		k.logger.Debug("resolved place from mock table", "place", place)
		return loc.String(), nil
	}

	loc, err := k.nominatimSearch(ctx, place)
	if err != nil {
		k.logger.Error("geocoding failed", "place", place, "error", err)
		return fmt.Sprintf("Could not resolve location `%s` right now.", place), nil
	}
	if loc == nil {
		return fmt.Sprintf("No location found for `%s`.", place), nil
	}
	return loc.String(), nil
}

// lookupMock matches the place against the mock table, including partial
// matches so "Solapur Market" still resolves.
func lookupMock(place string) (Location, bool) {
	clean := strings.ToLower(strings.TrimSpace(place))
	for name, coords := range mockLocations {
		if strings.Contains(clean, name) {
			runes := []rune(place)
			runes[0] = unicode.ToUpper(runes[0])
			return Location{PlaceName: string(runes), Latitude: coords[0], Longitude: coords[1]}, true
		}
	}
	return Location{}, false
}

func (k *Kit) nominatimSearch(ctx *ai.ToolContext, place string) (*Location, error) {
	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	q.Set("countrycodes", "in")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx.Context, http.MethodGet,
		k.nominatim+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "vistaar-advisory/1.0")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	var hits []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude: %w", err)
	}
	return &Location{
		PlaceName: hits[0].DisplayName,
		Latitude:  round3(lat),
		Longitude: round3(lon),
	}, nil
}
