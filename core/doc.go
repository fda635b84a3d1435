// Package core provides the foundational domain types shared by every
// actionmesh component:
//
//   - ExecutionContext / EnrichmentBundle (per-turn state)
//   - ExecutionResult / Draft (action outcomes, HITL drafts)
//   - RiskLevel / Policy / Channel (gating vocabulary)
//   - CRM entities and the Store port used to reach the data store
//   - Content / Part (provider neutral conversation representation)
//
// Implementation concerns (persistence, model transport, prompting) live in
// other packages and depend on the small interfaces declared here.
package core
