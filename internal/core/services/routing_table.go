package services

import "github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"

// DefaultRoutingTable is used when no routing table file is configured.
// Category order doubles as the tie-break priority.
func DefaultRoutingTable() domain.RoutingTable {
	return domain.RoutingTable{
		Specializations: []domain.SpecializationRule{
			{Worker: "sentinel-guard", Keywords: []string{"vulnerability", "penetration", "intrusion", "firewall"}},
			{Worker: "code-smith", Keywords: []string{"refactor", "stack trace", "pull request", "compile"}},
			{Worker: "quant-analyst", Keywords: []string{"forecast", "regression", "kpi"}},
			{Worker: "story-weaver", Keywords: []string{"copywriting", "slogan", "storyboard"}},
			{Worker: "data-miner", Keywords: []string{"etl", "scrape", "dataset"}},
		},
		Categories: []domain.CategoryRule{
			{Role: domain.RoleOrchestrator, Keywords: []string{"coordinate", "orchestrate", "workflow", "plan", "schedule"}},
			{Role: domain.RoleSecurity, Keywords: []string{"security", "threat", "encrypt", "compliance", "breach", "credential"}},
			{Role: domain.RoleEngineer, Keywords: []string{"code", "bug", "deploy", "api", "build", "debug", "infrastructure"}},
			{Role: domain.RoleAnalyst, Keywords: []string{"analy", "report", "metric", "trend", "insight", "dashboard"}},
			{Role: domain.RoleData, Keywords: []string{"data", "database", "sql", "pipeline", "ingest", "warehouse"}},
			{Role: domain.RoleCreative, Keywords: []string{"design", "write", "content", "marketing", "brand", "campaign"}},
			{Role: domain.RoleSupport, Keywords: []string{"customer", "ticket", "help", "support", "faq", "complaint"}},
		},
		DefaultRole:   domain.RoleOrchestrator,
		DefaultWorker: "orchestrator-prime",
	}
}
