// internal/models/ministry.go
package models

// Ministry is an organizational unit that can submit announcements. Inactive
// ministries are excluded from lookup but existing submissions keep whatever
// they snapshotted at creation time.
type Ministry struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Aliases             []string `json:"aliases"`
	Description         string   `json:"description,omitempty"`
	RequiresApproval    bool     `json:"requiresApproval"`
	ApprovalCoordinator string   `json:"approvalCoordinator,omitempty"`
	CoordinatorPhone    string   `json:"coordinatorPhone,omitempty"`
	Active              bool     `json:"active"`
}
