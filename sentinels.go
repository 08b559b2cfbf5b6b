package marvel

import "strings"

// Sentinels are the placeholders substituted for missing vendor fields.
type Sentinels struct {
	NotAvailable  string
	NoDescription string
	None          string
}

var EnglishSentinels = Sentinels{
	NotAvailable:  "Not available",
	NoDescription: "No description available.",
	None:          "None",
}

var SpanishSentinels = Sentinels{
	NotAvailable:  "No disponible",
	NoDescription: "Sin descripción disponible.",
	None:          "Ninguno",
}

// SentinelsFor picks a preset by language tag, falling back to English.
func SentinelsFor(lang string) Sentinels {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "es", "spanish", "español":
		return SpanishSentinels
	default:
		return EnglishSentinels
	}
}

func (s Sentinels) text(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return *v
}

func (s Sentinels) names(list *resourceList) []string {
	if list == nil || len(list.Items) == 0 {
		return []string{s.None}
	}
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.Name)
	}
	return names
}
