package handler

import (
	"net/http"

	"github.com/sakif/fluxflow/internal/engine/language"
)

// LanguageInfo is one entry in the /api/languages listing.
type LanguageInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

// LanguagesResponse wraps the listing so the JSON shape stays extensible.
type LanguagesResponse struct {
	Languages []LanguageInfo `json:"languages"`
}

// HandleLanguages lists the supported languages from the static registry.
func HandleLanguages(w http.ResponseWriter, r *http.Request) {
	pipelines := language.All()
	infos := make([]LanguageInfo, 0, len(pipelines))
	for _, p := range pipelines {
		infos = append(infos, LanguageInfo{
			ID:        p.ID,
			Name:      p.Name,
			Extension: p.Extension,
		})
	}
	writeJSON(w, http.StatusOK, LanguagesResponse{Languages: infos})
}
