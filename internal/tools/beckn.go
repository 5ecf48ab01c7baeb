package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Beckn protocol catalog types, shared by the weather and warehouse
// tools. Only the fields the renderers read are modeled; the networks
// return far more.

type becknDescriptor struct {
	Code      string `json:"code,omitempty"`
	Name      string `json:"name,omitempty"`
	ShortDesc string `json:"short_desc,omitempty"`
	LongDesc  string `json:"long_desc,omitempty"`
}

func (d becknDescriptor) String() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Code
}

type becknTagItem struct {
	Descriptor becknDescriptor `json:"descriptor"`
	Value      string          `json:"value"`
}

func (t becknTagItem) String() string {
	name := t.Descriptor.String()
	if name == "" {
		name = "Tag"
	}
	return fmt.Sprintf("%s: %s", name, t.Value)
}

type becknTag struct {
	Descriptor becknDescriptor `json:"descriptor"`
	List       []becknTagItem  `json:"list"`
}

func (t becknTag) String() string {
	heading := t.Descriptor.String()
	if heading == "" {
		heading = "Tag Group"
	}
	items := make([]string, len(t.List))
	for i, item := range t.List {
		items[i] = item.String()
	}
	return fmt.Sprintf("%s:\n      %s", heading, strings.Join(items, "\n      "))
}

type becknItem struct {
	ID         string          `json:"id"`
	Descriptor becknDescriptor `json:"descriptor"`
	Tags       []becknTag      `json:"tags,omitempty"`
}

func (it becknItem) String() string {
	var lines []string
	name := it.Descriptor.Name
	if name == "" {
		name = it.ID
	}
	lines = append(lines, fmt.Sprintf("**Item:** %s", name))
	if it.Descriptor.ShortDesc != "" {
		lines = append(lines, fmt.Sprintf("  Short: %s", it.Descriptor.ShortDesc))
	}
	if it.Descriptor.LongDesc != "" {
		lines = append(lines, fmt.Sprintf("  Long: %s", strings.TrimSpace(it.Descriptor.LongDesc)))
	}
	if len(it.Tags) > 0 {
		lines = append(lines, "  Tags:")
		for _, tag := range it.Tags {
			lines = append(lines, "    "+strings.ReplaceAll(tag.String(), "\n", "\n    "))
		}
	}
	return strings.Join(lines, "\n")
}

type becknProvider struct {
	ID         string          `json:"id"`
	Descriptor becknDescriptor `json:"descriptor"`
	Items      []becknItem     `json:"items,omitempty"`
}

func (p becknProvider) String() string {
	name := p.Descriptor.Name
	if name == "" {
		name = p.ID
	}
	lines := []string{fmt.Sprintf("Provider: %s", name)}
	if p.Descriptor.ShortDesc != "" {
		lines = append(lines, fmt.Sprintf("  Description: %s", p.Descriptor.ShortDesc))
	}
	if len(p.Items) > 0 {
		lines = append(lines, "  Items:")
		for _, item := range p.Items {
			lines = append(lines, "    "+strings.ReplaceAll(item.String(), "\n", "\n    "))
		}
	}
	return strings.Join(lines, "\n")
}

type becknCatalog struct {
	Descriptor becknDescriptor `json:"descriptor"`
	Providers  []becknProvider `json:"providers"`
}

func (c becknCatalog) String() string {
	name := c.Descriptor.String()
	if name == "" {
		name = "N/A"
	}
	lines := []string{fmt.Sprintf("Catalog: %s", name)}
	if len(c.Providers) > 0 {
		lines = append(lines, "Providers:")
		for _, p := range c.Providers {
			lines = append(lines, "  "+strings.ReplaceAll(p.String(), "\n", "\n  "))
		}
	}
	return strings.Join(lines, "\n")
}

type becknMessage struct {
	Catalog becknCatalog `json:"catalog"`
}

type becknResponseItem struct {
	Message becknMessage `json:"message"`
}

type becknResponse struct {
	Responses []becknResponseItem `json:"responses"`
}

// hasItems reports whether any provider in any response carries items.
func (r becknResponse) hasItems() bool {
	for _, rsp := range r.Responses {
		for _, p := range rsp.Message.Catalog.Providers {
			if len(p.Items) > 0 {
				return true
			}
		}
	}
	return false
}

// render formats the response for the model, with a heading and an
// explicit empty marker so the model never invents data.
func (r becknResponse) render(heading, emptyMsg string) string {
	lines := []string{"> " + heading}
	if !r.hasItems() {
		lines = append(lines, emptyMsg)
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "Responses:")
	for i, rsp := range r.Responses {
		catalog := strings.ReplaceAll(rsp.Message.Catalog.String(), "\n", "\n  ")
		lines = append(lines, fmt.Sprintf("  Response %d:", i+1))
		lines = append(lines, "    "+catalog)
	}
	return strings.Join(lines, "\n")
}

// becknContext builds the context block every Beckn search carries.
func (k *Kit) becknContext(domain string) map[string]any {
	return map[string]any{
		"ttl":            "PT10M",
		"action":         "search",
		"timestamp":      time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		"message_id":     uuid.NewString(),
		"transaction_id": uuid.NewString(),
		"domain":         domain,
		"version":        "1.1.0",
		"bap_id":         k.bapID,
		"bap_uri":        k.bapURI,
		"location": map[string]any{
			"country": map[string]any{"name": "India", "code": "IND"},
		},
	}
}
