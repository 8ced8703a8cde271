package responses

import "encoding/json"

type rawItem struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	ID        string          `json:"id"`
	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments string          `json:"arguments"`
	Input     string          `json:"input"`
	Output    json.RawMessage `json:"output"`
	Summary   json.RawMessage `json:"summary"`
	Text      json.RawMessage `json:"text"`
}

// DecodeItem decodes one element of an output/input item list, tolerating
// any of the item shapes documented in the Responses vocabulary. Unknown
// types decode with their Type preserved and the same common fields
// filled as for known types, so callers can apply their own
// unknown-item fallback.
func DecodeItem(raw json.RawMessage) (Item, error) {
	var ri rawItem
	if err := json.Unmarshal(raw, &ri); err != nil {
		return Item{}, err
	}

	item := Item{
		Type:      ri.Type,
		Role:      ri.Role,
		ID:        ri.ID,
		CallID:    ri.CallID,
		Name:      ri.Name,
		Arguments: ri.Arguments,
		Input:     ri.Input,
	}

	if ri.Content != nil {
		item.ContentParts = decodeContentParts(ri.Content)
	}
	if ri.Output != nil {
		item.Output = decodeStringOrJSON(ri.Output)
	}
	if ri.Type == "reasoning" {
		item.Summary = firstNonEmpty(decodeTextLike(ri.Summary), decodeTextLike(ri.Text))
	}
	return item, nil
}

func decodeContentParts(raw json.RawMessage) []ContentPart {
	var raws []json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil
	}
	parts := make([]ContentPart, 0, len(raws))
	for _, r := range raws {
		var p struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL any    `json:"image_url"`
			URL      string `json:"url"`
		}
		if err := json.Unmarshal(r, &p); err != nil {
			continue
		}
		part := ContentPart{Type: p.Type, Text: p.Text, ImageURL: p.ImageURL}
		if part.ImageURL == nil && p.URL != "" {
			part.ImageURL = p.URL
		}
		parts = append(parts, part)
	}
	return parts
}

// ImagePartURL extracts the URL from a content part's image_url field,
// accepting the three shapes OpenAI-compatible upstreams use: a bare
// string, {"url": "..."}, or (already normalized by decodeContentParts)
// a top-level "url" key folded into ImageURL.
func ImagePartURL(p ContentPart) string {
	switch v := p.ImageURL.(type) {
	case string:
		return v
	case map[string]any:
		if u, ok := v["url"].(string); ok {
			return u
		}
	}
	return ""
}

func decodeStringOrJSON(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func decodeTextLike(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		out := ""
		for _, l := range list {
			out += l.Text
		}
		return out
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
