package usecase

import (
	"fmt"
	"strings"

	"github.com/humidor/backend/internal/domain"
)

const chatInstructions = `You are the in-store cigar concierge for our shop. Talk like a friendly, knowledgeable tobacconist.

Only recommend cigars from the INVENTORY list below. Never invent a cigar, and never recommend one that is not listed.
Recommend at most %d cigars per reply. If nothing in inventory fits, say so and ask a follow-up question.

Always reply with a single JSON object and nothing else:
{"message": "<what you say to the customer>", "cigars": [{"name": "", "brand": "", "origin": "", "wrapper": "", "body": "", "strength": "", "price": "", "time": "", "description": "", "tastingNotes": [], "pairings": {"alcoholic": [], "nonAlcoholic": []}}]}
Use an empty "cigars" array when you are not recommending anything.`

const scanInstructions = `You are the in-store cigar concierge for our shop. The customer photographed a cigar or its band.

Identify the cigar ONLY if it is one of the cigars in the INVENTORY list below. Reference photos of some inventory cigars are attached after the customer's photo, in the order listed under REFERENCE PHOTOS.
Report how certain you are as an integer from 0 to 100 in "confidence". Do not mention the confidence number in "message".
If you cannot read the band or the cigar is not in our inventory, return an empty "cigars" array and ask the customer for a clearer photo.

Always reply with a single JSON object and nothing else:
{"message": "<what you say to the customer>", "confidence": 0, "cigars": [{"name": "", "brand": ""}]}`

// BuildChatPrompt builds the system prompt for a chat turn
func BuildChatPrompt(catalog []domain.CatalogEntry, previouslyShown []string, maxRecommendations int) string {
	var b strings.Builder
	fmt.Fprintf(&b, chatInstructions, maxRecommendations)
	writeInventory(&b, catalog)
	writePreviouslyShown(&b, previouslyShown)
	return b.String()
}

// BuildScanPrompt builds the system prompt for identifying a photographed cigar
func BuildScanPrompt(catalog []domain.CatalogEntry, references []ReferenceImage, previouslyShown []string) string {
	var b strings.Builder
	b.WriteString(scanInstructions)
	writeInventory(&b, catalog)

	if len(references) > 0 {
		b.WriteString("\n\nREFERENCE PHOTOS:\n")
		for i, ref := range references {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, ref.Entry.Brand, ref.Entry.Name)
		}
	}

	writePreviouslyShown(&b, previouslyShown)
	return b.String()
}

// writeInventory lists the in-stock catalog, one cigar per line
func writeInventory(b *strings.Builder, catalog []domain.CatalogEntry) {
	b.WriteString("\n\nINVENTORY:\n")
	listed := 0
	for _, entry := range catalog {
		if !entry.InStock() {
			continue
		}
		listed++
		fmt.Fprintf(b, "- %s %s | %s | %s wrapper | %s body | %s strength | %s\n",
			entry.Brand, entry.Name, entry.Origin, entry.Wrapper, entry.Body, entry.Strength, entry.PriceRange)
	}
	if listed == 0 {
		b.WriteString("(nothing in stock right now)\n")
	}
}

// writePreviouslyShown asks the model not to repeat cigars the customer has already seen
func writePreviouslyShown(b *strings.Builder, shown []string) {
	if len(shown) == 0 {
		return
	}
	b.WriteString("\nALREADY SHOWN to this customer (do not recommend these again unless they ask for one by name):\n")
	for _, name := range shown {
		fmt.Fprintf(b, "- %s\n", name)
	}
}
