package report

// ListOptions provides filtering options for listing reports.
type ListOptions struct {
	Axis   string
	Year   int
	Limit  int
	Offset int
}
