package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// WarehouseInput is the find_warehouses tool's input schema.
type WarehouseInput struct {
	Latitude  float64 `json:"latitude" jsonschema_description:"Latitude of the location."`
	Longitude float64 `json:"longitude" jsonschema_description:"Longitude of the location."`
}

// FindWarehouses queries the Beckn network for storage warehouses near
// the given coordinates.
func (k *Kit) FindWarehouses(ctx *ai.ToolContext, input WarehouseInput) (string, error) {
	payload := map[string]any{
		"context": k.becknContext("advisory:warehouse:mh-vistaar"),
		"message": map[string]any{
			"intent": map[string]any{
				"category": map[string]any{
					"descriptor": map[string]any{"name": "Warehouse"},
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
	return parsed.render("Warehouse Data",
		"No warehouse data found for the requested location."), nil
}
