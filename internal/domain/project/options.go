package project

// ListOptions provides filtering options for listing projects.
type ListOptions struct {
	States         []State
	OrganizationID string
	Limit          int
	Offset         int
}
