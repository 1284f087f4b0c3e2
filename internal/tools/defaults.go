package tools

import (
	"github.com/oakline/policyagent/internal/directory"
	"github.com/oakline/policyagent/internal/index"
)

// RegisterPolicyTools registers the full policy toolbox on a registry.
func RegisterPolicyTools(reg *Registry, store *directory.Store, service *index.Service) error {
	for _, t := range []Tool{
		NewEmployeeLookupTool(store),
		NewPolicySearchTool(service),
		NewApprovalCheckTool(store),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
