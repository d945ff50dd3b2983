// Package dispatch routes named operations with positional string arguments to
// the KYC service. It backs POST /invoke and kycctl invoke.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"ekyc/internal/query"
	"ekyc/internal/registry/models"
	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
)

// Operation names accepted by Invoke.
const (
	FnCreateClient                = "createClient"
	FnGetClientData               = "getClientData"
	FnGetFinancialInstitutionData = "getFinancialInstitutionData"
	FnApprove                     = "approve"
	FnRemove                      = "remove"
	FnGetRelationByClient         = "getRelationByClient"
	FnGetRelationByFi             = "getRelationByFi"
	FnQueryAllData                = "queryAllData"
)

// Service is the subset of the KYC service the dispatcher drives.
type Service interface {
	RegisterClient(ctx context.Context, caller id.InstitutionID, attributes map[string]any) (id.ClientID, error)
	GetClientData(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, fields string) (map[string]any, error)
	GetInstitutionData(ctx context.Context, caller id.InstitutionID) (*models.Institution, error)
	Approve(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) error
	Remove(ctx context.Context, caller id.InstitutionID, clientID id.ClientID, institutionID id.InstitutionID) error
	ListInstitutionsForClient(ctx context.Context, clientID id.ClientID) ([]id.InstitutionID, error)
	ListClientsForInstitution(ctx context.Context, institutionID id.InstitutionID) ([]id.ClientID, error)
	QueryAll(ctx context.Context, docType id.DocType) ([]query.Record, error)
}

type operation struct {
	arity int
	call  func(ctx context.Context, caller id.InstitutionID, args []string) (any, error)
}

// Dispatcher maps operation names onto service calls.
type Dispatcher struct {
	ops map[string]operation
}

// New builds a Dispatcher over svc.
func New(svc Service) *Dispatcher {
	d := &Dispatcher{}
	d.ops = map[string]operation{
		FnCreateClient: {1, func(ctx context.Context, caller id.InstitutionID, args []string) (any, error) {
			var attributes map[string]any
			if err := json.Unmarshal([]byte(args[0]), &attributes); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "client attributes must be a JSON object")
			}
			clientID, err := svc.RegisterClient(ctx, caller, attributes)
			if err != nil {
				return nil, err
			}
			return clientID, nil
		}},
		FnGetClientData: {2, func(ctx context.Context, caller id.InstitutionID, args []string) (any, error) {
			return svc.GetClientData(ctx, caller, id.ClientID(args[0]), args[1])
		}},
		FnGetFinancialInstitutionData: {0, func(ctx context.Context, caller id.InstitutionID, _ []string) (any, error) {
			return svc.GetInstitutionData(ctx, caller)
		}},
		FnApprove: {2, func(ctx context.Context, caller id.InstitutionID, args []string) (any, error) {
			return nil, svc.Approve(ctx, caller, id.ClientID(args[0]), id.InstitutionID(args[1]))
		}},
		FnRemove: {2, func(ctx context.Context, caller id.InstitutionID, args []string) (any, error) {
			return nil, svc.Remove(ctx, caller, id.ClientID(args[0]), id.InstitutionID(args[1]))
		}},
		FnGetRelationByClient: {1, func(ctx context.Context, _ id.InstitutionID, args []string) (any, error) {
			return svc.ListInstitutionsForClient(ctx, id.ClientID(args[0]))
		}},
		FnGetRelationByFi: {1, func(ctx context.Context, _ id.InstitutionID, args []string) (any, error) {
			return svc.ListClientsForInstitution(ctx, id.InstitutionID(args[0]))
		}},
		FnQueryAllData: {1, func(ctx context.Context, _ id.InstitutionID, args []string) (any, error) {
			docType, err := id.ParseDocType(args[0])
			if err != nil {
				return nil, err
			}
			return svc.QueryAll(ctx, docType)
		}},
	}
	return d
}

// Invoke runs function with args on behalf of caller. Arity is checked before
// the service is touched.
func (d *Dispatcher) Invoke(ctx context.Context, caller id.InstitutionID, function string, args []string) (any, error) {
	op, ok := d.ops[function]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid function: "+function)
	}
	if len(args) != op.arity {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("incorrect number of arguments, expecting %d", op.arity))
	}
	return op.call(ctx, caller, args)
}

// Functions lists the accepted operation names in sorted order.
func (d *Dispatcher) Functions() []string {
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
