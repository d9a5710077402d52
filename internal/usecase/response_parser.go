package usecase

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/humidor/backend/internal/domain"
)

// Parse modes, also used as metric labels
const (
	ParseModeStrict    = "strict"    // JSON decoded cleanly
	ParseModeRecovered = "recovered" // JSON was broken; fields pulled out by regex
	ParseModeProse     = "prose"     // no JSON at all
	ParseModeEmpty     = "empty"     // nothing to parse
)

// Compiled patterns for recovering fields from broken model JSON
var (
	codeFenceOpen  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	codeFenceClose = regexp.MustCompile("\\s*```\\s*$")

	confidenceField = regexp.MustCompile(`"confidence"\s*:\s*"?(\d{1,3}(?:\.\d+)?)`)
	// The closing quote is optional so a message cut off by the token limit still comes back
	messageField    = regexp.MustCompile(`"message"\s*:\s*"((?:[^"\\]|\\.)*)("?)`)
	cigarNameField  = regexp.MustCompile(`"cigars"\s*:\s*\[\s*\{[^{}]*?"name"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	cigarBrandField = regexp.MustCompile(`"cigars"\s*:\s*\[\s*\{[^{}]*?"brand"\s*:\s*"((?:[^"\\]|\\.)*)"`)

	// Confidence annotations a vision model sometimes echoes into its prose
	confidenceAnnotation = regexp.MustCompile(`(?i)\s*[(\[]\s*(?:confidence|certainty)(?:\s+(?:level|score))?\s*[:=]?\s*\d{1,3}\s*%?\s*[)\]]` +
		`|\s*\bwith\s+(?:about\s+|roughly\s+|approximately\s+)?\d{1,3}\s*%\s+(?:confidence|certainty)\b` +
		`|\s*\b(?:confidence|certainty)(?:\s+(?:level|score))?\s*[:=]\s*\d{1,3}\s*%?`)
	spaceBeforePunct     = regexp.MustCompile(`[ \t]+([.,!?;:])`)
	multipleSpacesRegex  = regexp.MustCompile(`[ \t]{2,}`)
)

// ParsedResponse is the structured content pulled out of raw model output
type ParsedResponse struct {
	Message    string
	Cigars     []domain.Candidate
	Confidence *int
	Mode       string
}

// Recovered reports whether fields came from regex recovery rather than JSON decoding.
// Recovered cigars are only a bare name and must resolve to inventory to be shown.
func (r ParsedResponse) Recovered() bool {
	return r.Mode == ParseModeRecovered
}

// modelPayload is the JSON object the prompts ask the model to produce.
// Cigars and confidence stay raw because the model gets their types wrong often.
type modelPayload struct {
	Message    string          `json:"message"`
	Cigars     json.RawMessage `json:"cigars"`
	Confidence json.RawMessage `json:"confidence"`
}

// ParseModelResponse extracts message, cigars and confidence from raw model output.
// It never fails: every malformed input maps to some (possibly empty) response.
func ParseModelResponse(raw string) ParsedResponse {
	text := stripCodeFences(raw)
	if text == "" {
		parseModes.WithLabelValues(ParseModeEmpty).Inc()
		return ParsedResponse{Cigars: []domain.Candidate{}, Mode: ParseModeEmpty}
	}

	start := strings.Index(text, "{")
	if start < 0 {
		parseModes.WithLabelValues(ParseModeProse).Inc()
		return ParsedResponse{Message: text, Cigars: []domain.Candidate{}, Mode: ParseModeProse}
	}

	if end := strings.LastIndex(text, "}"); end > start {
		var payload modelPayload
		if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err == nil {
			parseModes.WithLabelValues(ParseModeStrict).Inc()
			return ParsedResponse{
				Message:    strings.TrimSpace(payload.Message),
				Cigars:     decodeCandidates(payload.Cigars),
				Confidence: decodeConfidence(payload.Confidence),
				Mode:       ParseModeStrict,
			}
		}
	}

	parseModes.WithLabelValues(ParseModeRecovered).Inc()
	return recoverFields(text, start)
}

// stripCodeFences removes a markdown code fence wrapped around the output
func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = codeFenceOpen.ReplaceAllString(text, "")
	text = codeFenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// recoverFields pulls individual fields out of JSON that failed to decode
func recoverFields(text string, jsonStart int) ParsedResponse {
	resp := ParsedResponse{Cigars: []domain.Candidate{}, Mode: ParseModeRecovered}

	if m := confidenceField.FindStringSubmatch(text); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			v := scaleConfidence(n)
			resp.Confidence = &v
		}
	}

	if m := messageField.FindStringSubmatch(text); m != nil {
		resp.Message = unescapeJSONString(m[1], m[2] == `"`)
	}
	if resp.Message == "" {
		// Prose the model wrote before the JSON started
		resp.Message = strings.TrimSpace(text[:jsonStart])
	}

	if m := cigarNameField.FindStringSubmatch(text); m != nil {
		name := unescapeJSONString(m[1], true)
		if strings.TrimSpace(name) != "" {
			candidate := domain.Candidate{Name: name}
			if b := cigarBrandField.FindStringSubmatch(text); b != nil {
				candidate.Brand = unescapeJSONString(b[1], true)
			}
			resp.Cigars = append(resp.Cigars, candidate)
		}
	}

	return resp
}

// unescapeJSONString decodes the body of a JSON string literal.
// An unterminated body may end in half an escape sequence, which is dropped.
func unescapeJSONString(body string, terminated bool) string {
	if !terminated {
		body = strings.TrimSuffix(body, `\`)
	}
	var s string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &s); err == nil {
		return strings.TrimSpace(s)
	}
	r := strings.NewReplacer(`\"`, `"`, `\n`, "\n", `\t`, "\t", `\\`, `\`)
	return strings.TrimSpace(r.Replace(body))
}

// decodeCandidates decodes the cigars array, skipping elements that are not objects.
// Anything other than an array yields an empty list.
func decodeCandidates(raw json.RawMessage) []domain.Candidate {
	candidates := []domain.Candidate{}
	if len(raw) == 0 {
		return candidates
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return candidates
	}

	for _, element := range elements {
		var c domain.Candidate
		if err := json.Unmarshal(element, &c); err != nil {
			c = decodeLooseCandidate(element)
		}
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// decodeLooseCandidate salvages a cigar object whose fields have unexpected types,
// e.g. a numeric price or tasting notes given as one string.
func decodeLooseCandidate(raw json.RawMessage) domain.Candidate {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Candidate{}
	}

	str := func(key string) string {
		switch v := fields[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return ""
		}
	}
	list := func(v interface{}) []string {
		switch t := v.(type) {
		case string:
			return splitList(t)
		case []interface{}:
			out := make([]string, 0, len(t))
			for _, item := range t {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		default:
			return nil
		}
	}

	c := domain.Candidate{
		Name:         str("name"),
		Brand:        str("brand"),
		Origin:       str("origin"),
		Wrapper:      str("wrapper"),
		Body:         str("body"),
		Strength:     str("strength"),
		Price:        str("price"),
		Time:         str("time"),
		Description:  str("description"),
		TastingNotes: list(fields["tastingNotes"]),
	}
	if pairings, ok := fields["pairings"].(map[string]interface{}); ok {
		c.Pairings = domain.Pairings{
			Alcoholic:    list(pairings["alcoholic"]),
			NonAlcoholic: list(pairings["nonAlcoholic"]),
		}
	}
	return c
}

// splitList turns "cocoa, cedar, pepper" into its parts
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decodeConfidence accepts 82, 82.5, 0.82, "82" and "82%"
func decodeConfidence(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
		if err != nil {
			return nil
		}
		n = parsed
	}

	v := scaleConfidence(n)
	return &v
}

// scaleConfidence rounds to a 0-100 integer; fractions below 1 are on a 0-1 scale
func scaleConfidence(n float64) int {
	if n > 0 && n < 1 {
		n *= 100
	}
	return clampConfidence(int(n + 0.5))
}

// clampConfidence keeps a confidence inside 0-100
func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// SanitizeImageMessage removes confidence annotations the model echoed into its prose,
// e.g. "This is a Padron 1964 (confidence: 82%)." becomes "This is a Padron 1964.".
func SanitizeImageMessage(message string) string {
	cleaned := confidenceAnnotation.ReplaceAllString(message, "")
	cleaned = spaceBeforePunct.ReplaceAllString(cleaned, "$1")
	cleaned = multipleSpacesRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
