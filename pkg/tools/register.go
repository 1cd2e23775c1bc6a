package tools

import (
	"github.com/plantops/opsbrief/pkg/actions"
)

// DefaultRegistry builds the registry with every capability tool
// wired against the shared dependencies.
func DefaultRegistry(deps *Deps, engine *actions.Engine) (*Registry, error) {
	registry := NewRegistry()
	all := []Tool{
		NewAssetLookupTool(deps),
		NewProductionStatusTool(deps),
		NewOEEQueryTool(deps),
		NewDowntimeAnalysisTool(deps),
		NewSafetyEventsTool(deps),
		NewAlertCheckTool(deps),
		NewFinancialImpactTool(deps),
		NewCostOfLossTool(deps),
		NewTrendAnalysisTool(deps),
		NewComparativeAnalysisTool(deps),
		NewRecommendationTool(deps),
		NewActionListTool(deps, engine),
		NewPlantOverviewTool(deps),
	}
	for _, t := range all {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
