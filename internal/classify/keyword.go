package classify

import (
	"context"
	"strings"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

type rule struct {
	keywords []string
	analysis erasure.Analysis
}

// rules are checked in order; the first rule with a matching keyword wins.
var rules = []rule{
	{
		keywords: []string{"gelöscht", "deleted", "entfernt", "removed", "vollständig gelöscht", "completely deleted"},
		analysis: erasure.Analysis{
			Type:            erasure.ResponseCompleted,
			Summary:         "Daten wurden gelöscht",
			ActionRequired:  false,
			SuggestedAction: "Keine weitere Aktion erforderlich",
			Confidence:      0.7,
		},
	},
	{
		keywords: []string{"bestätigen", "erhalten", "bearbeiten", "prüfen", "acknowledge", "received", "processing"},
		analysis: erasure.Analysis{
			Type:            erasure.ResponseAcknowledged,
			Summary:         "Anfrage wurde bestätigt",
			ActionRequired:  true,
			SuggestedAction: "Warten auf Abschluss, ggf. Erinnerung senden",
			Confidence:      0.6,
		},
	},
	{
		keywords: []string{
			"ablehnen", "abgelehnt", "nicht möglich", "nicht erfüllen",
			"reject", "rejected", "cannot", "can not", "unable",
			"gesetzliche aufbewahrungspflicht", "gesetzlichen aufbewahrungspflichten",
			"aufbewahrungspflicht", "aufbewahrungspflichten",
			"legal obligation", "legal obligations", "retention obligation", "retention obligations",
		},
		analysis: erasure.Analysis{
			Type:            erasure.ResponseRejected,
			Summary:         "Anfrage wurde abgelehnt",
			ActionRequired:  true,
			SuggestedAction: "Begründung prüfen, ggf. Beschwerde einreichen",
			Confidence:      0.7,
		},
	},
	{
		keywords: []string{"weitere informationen", "more information", "identifizierung", "identification", "nachweis", "proof"},
		analysis: erasure.Analysis{
			Type:            erasure.ResponseNeedsInfo,
			Summary:         "Unternehmen benötigt weitere Informationen",
			ActionRequired:  true,
			SuggestedAction: "Angeforderte Informationen bereitstellen",
			Confidence:      0.6,
		},
	},
}

var unknown = erasure.Analysis{
	Type:            erasure.ResponseUnknown,
	Summary:         "Antworttyp konnte nicht bestimmt werden",
	ActionRequired:  true,
	SuggestedAction: "Manuelle Prüfung erforderlich",
	Confidence:      0.3,
}

// Keyword is the deterministic classifier. It needs no external service.
type Keyword struct{}

func (Keyword) Classify(ctx context.Context, text string) erasure.Analysis {
	if strings.TrimSpace(text) == "" {
		return erasure.EmptyResponseAnalysis()
	}
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.analysis
			}
		}
	}
	return unknown
}
