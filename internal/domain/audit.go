package domain

// Audit event types
const (
	AuditTypeProposalCreated  = "PROPOSAL_CREATED"
	AuditTypeProposalApproved = "PROPOSAL_APPROVED"
	AuditTypeProposalMerged   = "PROPOSAL_MERGED"
	AuditTypeProposalRejected = "PROPOSAL_REJECTED"
	AuditTypeCycleCompleted   = "EVOLUTION_CYCLE_COMPLETED"
	AuditTypeWorkerEvolved    = "WORKER_EVOLVED"
)

// Audit resource types
const (
	ResourceTypeProposal = "proposal"
	ResourceTypeCycle    = "evolution_cycle"
	ResourceTypeWorker   = "worker"
)
