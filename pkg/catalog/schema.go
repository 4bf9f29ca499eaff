// pkg/catalog/schema.go
package catalog

// Catalog is the static intent catalog. It is read-only after Load.
type Catalog struct {
	Version string   `json:"version"`
	Intents []Intent `json:"intents"`

	byName map[string]*Intent
}

// Intent describes one canonical request category: the trigger phrases it is
// scored against, the response templates used on success, example phrasings
// surfaced in clarifications, canned follow-up suggestions and the entities
// its dispatch requires.
type Intent struct {
	Name             string   `json:"name"`
	Patterns         []string `json:"patterns"`
	Responses        []string `json:"responses"`
	Examples         []string `json:"examples,omitempty"`
	Suggestions      []string `json:"suggestions,omitempty"`
	RequiredEntities []string `json:"requiredEntities,omitempty"`
}

// Get returns the intent by canonical name.
func (c *Catalog) Get(name string) (*Intent, bool) {
	in, ok := c.byName[name]
	return in, ok
}

// Names returns intent names in catalog order. Classification ties break on
// this order, so it must be stable.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Intents))
	for i := range c.Intents {
		out = append(out, c.Intents[i].Name)
	}
	return out
}

func (c *Catalog) index() {
	c.byName = make(map[string]*Intent, len(c.Intents))
	for i := range c.Intents {
		c.byName[c.Intents[i].Name] = &c.Intents[i]
	}
}
