package workflows

import (
	"go.temporal.io/sdk/worker"

	"clausecheck/internal/activities"
)

// RegisterAll wires the workflow definitions and the activity struct
// onto a worker. Activities register as a struct so method names line
// up with the references workflows use.
func RegisterAll(w worker.Worker, acts *activities.Activities) {
	w.RegisterWorkflow(CorpusIngestWorkflow)
	w.RegisterWorkflow(DocumentIngestWorkflow)
	w.RegisterWorkflow(ContractAnalysisWorkflow)
	w.RegisterActivity(acts)
}
