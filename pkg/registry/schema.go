// pkg/registry/schema.go
package registry

// TemplateRegistry is the versioned set of notification templates loaded from
// a JSON file at startup.
type TemplateRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Templates   []Template `json:"templates"`
}

// Template defines the rendered content for one notification event kind.
// Placeholders use {{name}} syntax and are substituted from the event payload.
type Template struct {
	Kind    string `json:"kind"` // "pending", "approved", "rejected"
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SMSBody string `json:"smsBody,omitempty"`
	Version string `json:"version"`
}
