package driven

// ConfigStore is a flat key/value view over the settings file. Keys are
// dotted paths such as "retrieval.top_k". Typed getters return the zero
// value for missing keys or values of the wrong type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64 // integers are widened
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores and persists a value.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is where the settings live; empty for in-memory stores.
	Path() string
}
