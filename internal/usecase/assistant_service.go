package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
)

// In-character replies used when the model gives us nothing usable
const (
	FallbackMessage       = "Sorry, I lost my train of thought for a second there. Could you ask me that again?"
	LowConfidenceMessage  = "I'm not quite sure which cigar that is. Could you take a closer photo of the band, or tell me the name printed on it?"
	NotInInventoryMessage = "I couldn't match that one to anything in our humidor. Try another photo with the band facing the camera, or ask me for something similar."
	scanUserPrompt        = "Please identify the cigar in this photo."
)

// DefaultMaxRecommendations caps how many cigars one reply may show
const DefaultMaxRecommendations = 2

// AssistantServiceConfig holds configuration for the assistant service
type AssistantServiceConfig struct {
	AcceptanceFloor     int
	ConfidenceThreshold int
	AssumedConfidence   int
	BackfillConfidence  int
	MaxRecommendations  int
	// MaxTokens overrides every provider's own limit; 0 keeps each provider's
	MaxTokens           int
	ProductURLBase      string
	// StrictChatInventory drops chat recommendations that do not resolve to the catalog
	StrictChatInventory bool
	EnableDebugLogging  bool
}

// AssistantService answers chat messages and photo scans from the store's inventory
type AssistantService struct {
	catalog            domain.CatalogRepository
	model              domain.ModelClient
	references         *ReferenceImageLoader
	matcher            *MatchingService
	extractor          *QueryExtractor
	enricher           *Enricher
	guardrail          *ConfidenceGuardrail
	maxRecommendations int
	maxTokens          int
	strictChat         bool
	logger             zerolog.Logger
}

// NewAssistantService creates a new assistant service with dependencies.
// references may be nil, in which case scans go out without reference photos.
func NewAssistantService(
	catalog domain.CatalogRepository,
	model domain.ModelClient,
	references *ReferenceImageLoader,
	config AssistantServiceConfig,
	logger zerolog.Logger,
) *AssistantService {
	logger = logger.With().Str("component", "assistant").Logger()

	matcher := NewMatchingService(MatchConfig{
		AcceptanceFloor:    config.AcceptanceFloor,
		EnableDebugLogging: config.EnableDebugLogging,
		Logger:             logger,
	})

	maxRecommendations := config.MaxRecommendations
	if maxRecommendations <= 0 {
		maxRecommendations = DefaultMaxRecommendations
	}

	return &AssistantService{
		catalog:    catalog,
		model:      model,
		references: references,
		matcher:    matcher,
		extractor:  NewQueryExtractor(matcher, config.EnableDebugLogging, logger),
		enricher:   NewEnricher(matcher, config.ProductURLBase),
		guardrail: NewConfidenceGuardrail(GuardrailConfig{
			ConfidenceThreshold: config.ConfidenceThreshold,
			AssumedConfidence:   config.AssumedConfidence,
			BackfillConfidence:  config.BackfillConfidence,
		}),
		maxRecommendations: maxRecommendations,
		maxTokens:          config.MaxTokens,
		strictChat:         config.StrictChatInventory,
		logger:             logger,
	}
}

// Matcher exposes the inventory matcher, e.g. for the CLI
func (s *AssistantService) Matcher() *MatchingService {
	return s.matcher
}

// Chat answers one customer message.
// Flow: load catalog -> prompt model -> parse -> enrich -> backfill requested cigar -> dedup -> cap
func (s *AssistantService) Chat(ctx context.Context, request *domain.ChatRequest) (*domain.AssistantResponse, error) {
	if request == nil || strings.TrimSpace(request.Message) == "" {
		return nil, domain.ErrInvalidRequest
	}

	catalog, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	messages := make([]domain.Turn, 0, len(request.History)+1)
	messages = append(messages, request.History...)
	messages = append(messages, domain.Turn{Role: domain.RoleUser, Content: request.Message})

	raw := s.generate(ctx, domain.ModelRequest{
		System:    BuildChatPrompt(catalog, request.PreviouslyShown, s.maxRecommendations),
		Messages:  messages,
		MaxTokens: s.maxTokens,
	})
	parsed := ParseModelResponse(raw)

	message := parsed.Message
	if message == "" {
		message = FallbackMessage
	}

	cigars := s.enricher.Enrich(parsed.Cigars, catalog)
	if s.strictChat || parsed.Recovered() {
		cigars = FilterToInventory(cigars)
	}

	// The cigar the customer asked about by name is always shown when we carry it
	requestedID := ""
	if match, ok := s.extractor.ResolveRequestedCigar(request.Message, catalog); ok {
		requestedID = match.Entry.ID
		if !containsCigar(cigars, match.Entry.ID) {
			cigars = append([]domain.DisplayCigar{s.enricher.Display(match.Entry)}, cigars...)
		}
	}

	cigars = s.dropPreviouslyShown(cigars, request.PreviouslyShown, requestedID, catalog)
	cigars = s.capRecommendations(dedupCigars(cigars))

	return &domain.AssistantResponse{Message: message, Cigars: cigars}, nil
}

// Scan identifies a photographed cigar, answering only when confident it is in inventory.
// Flow: load catalog -> reference photos -> prompt model -> parse -> enrich+filter -> prose backfill -> guardrail
func (s *AssistantService) Scan(ctx context.Context, request *domain.ScanRequest) (*domain.AssistantResponse, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}
	photo, err := DecodeImagePayload(request.Image, request.MimeType)
	if err != nil {
		return nil, err
	}

	catalog, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var references []ReferenceImage
	if s.references != nil {
		references = s.references.Load(ctx, catalog)
	}

	images := make([]domain.Image, 0, len(references)+1)
	images = append(images, *photo)
	for _, ref := range references {
		images = append(images, ref.Image)
	}

	raw := s.generate(ctx, domain.ModelRequest{
		System:    BuildScanPrompt(catalog, references, request.PreviouslyShown),
		Messages:  []domain.Turn{{Role: domain.RoleUser, Content: scanUserPrompt}},
		Images:    images,
		MaxTokens: s.maxTokens,
	})
	parsed := ParseModelResponse(raw)
	message := SanitizeImageMessage(parsed.Message)

	cigars := FilterToInventory(s.enricher.Enrich(parsed.Cigars, catalog))

	// Prose only fills in for a missing list. A structured list the catalog rejected
	// stands, except a regex-recovered name, which is too partial to trust.
	backfilled := false
	if len(cigars) == 0 && message != "" && (len(parsed.Cigars) == 0 || parsed.Recovered()) {
		if match, ok := s.extractor.ResolveIdentifiedCigar(message, catalog); ok {
			cigars = FilterToInventory([]domain.DisplayCigar{s.enricher.Display(match.Entry)})
			backfilled = len(cigars) > 0
		}
	}
	cigars = s.capRecommendations(dedupCigars(cigars))

	outcome := s.guardrail.Evaluate(GuardrailInput{
		Confidence: parsed.Confidence,
		Cigars:     cigars,
		Backfilled: backfilled,
	})

	switch {
	case outcome.State == StateConfirmed && message == "":
		top := outcome.Cigars[0]
		message = fmt.Sprintf("That looks like the %s %s.", top.Brand, top.Name)
	case outcome.State == StateNeedsClarification && raw == "":
		message = FallbackMessage
	case outcome.State == StateNeedsClarification && len(cigars) == 0:
		message = NotInInventoryMessage
	case outcome.State == StateNeedsClarification:
		message = LowConfidenceMessage
	}

	s.logger.Info().
		Str("state", string(outcome.State)).
		Int("confidence", outcome.Confidence).
		Bool("backfilled", backfilled).
		Str("parse_mode", parsed.Mode).
		Msg("scan evaluated")

	confidence := outcome.Confidence
	return &domain.AssistantResponse{
		Message:    message,
		Cigars:     outcome.Cigars,
		Confidence: &confidence,
		State:      string(outcome.State),
	}, nil
}

// generate calls the model; a failure is logged and treated as an empty reply
func (s *AssistantService) generate(ctx context.Context, request domain.ModelRequest) string {
	raw, err := s.model.Generate(ctx, request)
	if err != nil {
		modelFailures.Inc()
		s.logger.Warn().Err(err).Msg("model request failed")
		return ""
	}
	return raw
}

// dropPreviouslyShown removes cigars the customer has already seen,
// unless it is the one they just asked for by name
func (s *AssistantService) dropPreviouslyShown(
	cigars []domain.DisplayCigar,
	shown []string,
	requestedID string,
	catalog []domain.CatalogEntry,
) []domain.DisplayCigar {
	if len(shown) == 0 {
		return cigars
	}

	shownKeys := make(map[string]bool, len(shown))
	shownIDs := make(map[string]bool, len(shown))
	for _, name := range shown {
		shownKeys[nameKey(name)] = true
		if match, ok := s.matcher.FindMatch(name, "", catalog); ok && match.Exact {
			shownIDs[match.Entry.ID] = true
		}
	}

	kept := make([]domain.DisplayCigar, 0, len(cigars))
	for _, cigar := range cigars {
		if cigar.ID != "" && cigar.ID == requestedID {
			kept = append(kept, cigar)
			continue
		}
		seen := shownKeys[nameKey(cigar.Name)] ||
			shownKeys[nameKey(cigar.Brand+" "+cigar.Name)] ||
			(cigar.ID != "" && shownIDs[cigar.ID])
		if seen {
			droppedCigars.WithLabelValues("previously_shown").Inc()
			continue
		}
		kept = append(kept, cigar)
	}
	return kept
}

// capRecommendations keeps at most maxRecommendations cigars
func (s *AssistantService) capRecommendations(cigars []domain.DisplayCigar) []domain.DisplayCigar {
	if len(cigars) <= s.maxRecommendations {
		return cigars
	}
	droppedCigars.WithLabelValues("over_limit").Add(float64(len(cigars) - s.maxRecommendations))
	return cigars[:s.maxRecommendations]
}

// dedupCigars removes repeats of the same cigar, keeping the first
func dedupCigars(cigars []domain.DisplayCigar) []domain.DisplayCigar {
	seen := make(map[string]bool, len(cigars))
	out := make([]domain.DisplayCigar, 0, len(cigars))
	for _, cigar := range cigars {
		key := cigar.ID
		if key == "" {
			key = nameKey(cigar.Brand + " " + cigar.Name)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cigar)
	}
	return out
}

func containsCigar(cigars []domain.DisplayCigar, id string) bool {
	for _, cigar := range cigars {
		if cigar.ID == id {
			return true
		}
	}
	return false
}

// nameKey normalizes a cigar name for comparison
func nameKey(name string) string {
	return strings.Join(Tokenize(name), " ")
}

// DecodeImagePayload accepts raw base64 or a data URL and returns the image.
// The base64 is validated but kept encoded for the model request.
func DecodeImagePayload(payload, mimeType string) (*domain.Image, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 {
			return nil, fmt.Errorf("%w: malformed data URL", domain.ErrInvalidRequest)
		}
		header := payload[len("data:"):comma]
		payload = payload[comma+1:]
		if semi := strings.Index(header, ";"); semi >= 0 {
			header = header[:semi]
		}
		if header != "" {
			mimeType = header
		}
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidRequest)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidRequest)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: unsupported image type %q", domain.ErrInvalidRequest, mimeType)
	}
	return &domain.Image{MimeType: mimeType, Data: payload}, nil
}

// DecodedImageSize returns the decoded byte size of a base64 payload without decoding it
func DecodedImageSize(payload string) int {
	if comma := strings.Index(payload, ","); strings.HasPrefix(payload, "data:") && comma >= 0 {
		payload = payload[comma+1:]
	}
	payload = strings.TrimSpace(payload)
	return base64.StdEncoding.DecodedLen(len(payload)) - strings.Count(payload[max(0, len(payload)-2):], "=")
}
