package domain

// AIModel describe un modelo seleccionable por chat.
type AIModel struct {
	ID                   string `json:"id"`
	DisplayName          string `json:"name"`
	SupportsSystemPrompt bool   `json:"supports_system_prompt"`
}

// DefaultModelID se usa cuando un chat se crea sin eleccion explicita.
const DefaultModelID = "gpt-4o-mini"

var models = []AIModel{
	{ID: "gpt-4o", DisplayName: "GPT-4o", SupportsSystemPrompt: true},
	{ID: "gpt-4o-mini", DisplayName: "GPT-4o Mini", SupportsSystemPrompt: true},
	{ID: "o1-preview", DisplayName: "Strawberry", SupportsSystemPrompt: false},
	{ID: "o1-mini", DisplayName: "Strawberry Mini", SupportsSystemPrompt: false},
}

// Models devuelve la tabla de modelos disponibles en orden de presentacion.
func Models() []AIModel {
	out := make([]AIModel, len(models))
	copy(out, models)
	return out
}

func LookupModel(id string) (AIModel, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return AIModel{}, false
}

// IsRestrictedModel indica si el modelo nunca debe recibir un mensaje de sistema.
func IsRestrictedModel(id string) bool {
	m, ok := LookupModel(id)
	return ok && !m.SupportsSystemPrompt
}
