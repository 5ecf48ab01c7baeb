// Package tools provides the advisory agent's tool kit: weather
// forecasts and warehouse discovery over the Beckn network, place
// resolution, document search, and the agricultural term glossary.
//
// Every tool returns a formatted string rather than structured data: the
// output is consumed by the model as prompt context, and an explicit
// "nothing found" string keeps it from inventing results.
package tools

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/vistaar-ai/vistaar/internal/log"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 15 * time.Second
	defaultNominatim      = "https://nominatim.openstreetmap.org"
)

// Config holds the kit's endpoints and tuning.
type Config struct {
	// BapEndpoint is the Beckn application platform URL serving weather
	// and warehouse searches.
	BapEndpoint string
	// BapID and BapURI identify this platform on the network.
	BapID  string
	BapURI string

	// MarqoEndpoint is the document search service URL. Empty disables
	// document search with a polite message instead of an error.
	MarqoEndpoint string
	// MarqoIndex is the index to search. Defaults to "vistaar-index".
	MarqoIndex string

	// NominatimEndpoint overrides the OSM geocoding server, mainly for
	// tests. Defaults to the public instance.
	NominatimEndpoint string

	// ConnectTimeout and ReadTimeout bound outbound calls. Default
	// 10s/15s.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client

	Logger log.Logger
}

// Kit is the tool collection. Register once per genkit instance.
type Kit struct {
	bapEndpoint string
	bapID       string
	bapURI      string

	marqoEndpoint string
	marqoIndex    string
	nominatim     string

	client *http.Client
	logger log.Logger

	glossary []termPair
}

// New creates a Kit from cfg, applying defaults for zero values.
func New(cfg Config) (*Kit, error) {
	if cfg.BapEndpoint == "" {
		return nil, errors.New("bap endpoint is required")
	}
	if cfg.MarqoIndex == "" {
		cfg.MarqoIndex = "vistaar-index"
	}
	if cfg.NominatimEndpoint == "" {
		cfg.NominatimEndpoint = defaultNominatim
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		}
	}

	glossary, err := loadGlossary()
	if err != nil {
		return nil, err
	}

	return &Kit{
		bapEndpoint:   cfg.BapEndpoint,
		bapID:         cfg.BapID,
		bapURI:        cfg.BapURI,
		marqoEndpoint: cfg.MarqoEndpoint,
		marqoIndex:    cfg.MarqoIndex,
		nominatim:     cfg.NominatimEndpoint,
		client:        client,
		logger:        cfg.Logger,
		glossary:      glossary,
	}, nil
}

// Register defines every tool on g and returns the refs to offer the
// model per turn.
func (k *Kit) Register(g *genkit.Genkit) []ai.ToolRef {
	refs := []ai.ToolRef{
		genkit.DefineTool(g, "weather_forecast",
			"Get the weather forecast for a location. "+
				"Provide latitude, longitude, and the number of days (1-10, default 5). "+
				"Use resolve_location first when you only have a place name.",
			k.WeatherForecast),

		genkit.DefineTool(g, "find_warehouses",
			"Find storage warehouses near a location for storing harvested produce. "+
				"Provide latitude and longitude of the farmer's area.",
			k.FindWarehouses),

		genkit.DefineTool(g, "resolve_location",
			"Resolve a place name (village, taluka, district, or city) to coordinates. "+
				"Returns latitude, longitude, and the resolved place name.",
			k.ResolveLocation),

		genkit.DefineTool(g, "search_documents",
			"Semantic search over agricultural advisory documents and videos. "+
				"The query must be in English. Optionally filter by type: video or document.",
			k.SearchDocuments),

		genkit.DefineTool(g, "search_terms",
			"Look up agricultural terms in the English-Marathi glossary using fuzzy matching. "+
				"Use this to find the precise local term for a crop, pest, practice, or input.",
			k.SearchTerms),
	}

	k.logger.Info("tools registered", "count", len(refs))
	return refs
}
