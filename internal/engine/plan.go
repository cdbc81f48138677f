package engine

// Plan records which strategy a SELECT used to resolve its WHERE clause
// (teacher's QueryPlan, kept), so tests can assert index-vs-scan selection
// (spec §8 scenario 6) without instrumenting the pager directly — though
// Pager.ReadCount() remains available for that too.
type Plan struct {
	Table     string
	UsedIndex bool
	IndexName string
}
