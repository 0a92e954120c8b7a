// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TemplateRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// ByKind returns the template for the given event kind.
func (r *TemplateRegistry) ByKind(kind string) (*Template, error) {
	for i := range r.Templates {
		if r.Templates[i].Kind == kind {
			return &r.Templates[i], nil
		}
	}
	return nil, fmt.Errorf("no template registered for kind %q", kind)
}
