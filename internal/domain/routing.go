package domain

// SpecializationRule sends a task straight to a named worker when any of its
// keywords appears in the task description.
type SpecializationRule struct {
	Worker   string   `yaml:"worker" json:"worker"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// CategoryRule scores a role by counting keyword hits in the description.
type CategoryRule struct {
	Role     WorkerRole `yaml:"role" json:"role"`
	Keywords []string   `yaml:"keywords" json:"keywords"`
}

// RoutingTable holds the ordered rule lists used by the capability router.
// Rule order is significant: specializations are evaluated first to last and
// category ties are won by the earlier rule.
type RoutingTable struct {
	Specializations []SpecializationRule `yaml:"specializations" json:"specializations"`
	Categories      []CategoryRule       `yaml:"categories" json:"categories"`
	DefaultRole     WorkerRole           `yaml:"default_role" json:"default_role"`
	DefaultWorker   string               `yaml:"default_worker" json:"default_worker"`
}

// RouteTier names the router stage that produced a decision.
type RouteTier string

const (
	RouteTierSpecialization RouteTier = "specialization"
	RouteTierCategory       RouteTier = "category"
	RouteTierDefaultWorker  RouteTier = "default_worker"
	RouteTierGlobalBest     RouteTier = "global_best"
)

type RouteDecision struct {
	Worker Worker     `json:"worker"`
	Tier   RouteTier  `json:"tier"`
	Role   WorkerRole `json:"role"`
	Reason string     `json:"reason"`
}
