package requests

import "fmt"

// Action names an operation a principal can attempt on a service request.
type Action string

const (
	ActionView         Action = "view"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionAssign       Action = "assign"
	ActionStart        Action = "start"
	ActionComplete     Action = "complete"
	ActionCancel       Action = "cancel"
	ActionUpdateStatus Action = "update_status"
	ActionFeedback     Action = "feedback"
)

// capability decides whether a principal may perform one action on one
// request. A nil return allows; otherwise the error wraps ErrPermissionDenied.
type capability func(p Principal, r *ServiceRequest) error

func allow(Principal, *ServiceRequest) error { return nil }

func ownerOnly(p Principal, r *ServiceRequest) error {
	if !r.IsOwner(p) {
		return deniedErr("not the owner of this request")
	}
	return nil
}

func assignedAgentOnly(p Principal, r *ServiceRequest) error {
	if !r.IsAssignedAgent(p) {
		return deniedErr("request is not assigned to you")
	}
	return nil
}

func ownerPendingOnly(p Principal, r *ServiceRequest) error {
	if err := ownerOnly(p, r); err != nil {
		return err
	}
	if r.Status != StatusPending {
		return deniedErr("only pending requests can be edited")
	}
	return nil
}

// Cancellation from hold is reserved for admins; other status legality is
// the state machine's call so illegal cancels surface as InvalidTransition.
func ownerCancel(p Principal, r *ServiceRequest) error {
	if err := ownerOnly(p, r); err != nil {
		return err
	}
	if r.Status == StatusOnHold {
		return deniedErr("on-hold requests can only be cancelled by an admin")
	}
	return nil
}

func notInExecution(_ Principal, r *ServiceRequest) error {
	if r.Status == StatusAssigned || r.Status == StatusInProgress {
		return deniedErr("requests in execution cannot be deleted")
	}
	return nil
}

func ownerDelete(p Principal, r *ServiceRequest) error {
	if err := ownerOnly(p, r); err != nil {
		return err
	}
	return notInExecution(p, r)
}

// capabilities is the (role, action) permission table. Admin bypasses
// ownership everywhere; absence of an entry means deny.
var capabilities = map[Role]map[Action]capability{
	RoleAdmin: {
		ActionView:         allow,
		ActionUpdate:       allow,
		ActionDelete:       notInExecution,
		ActionApprove:      allow,
		ActionReject:       allow,
		ActionAssign:       allow,
		ActionComplete:     allow,
		ActionCancel:       allow,
		ActionUpdateStatus: allow,
	},
	RoleFarmer: {
		ActionView:         ownerOnly,
		ActionUpdate:       ownerPendingOnly,
		ActionDelete:       ownerDelete,
		ActionCancel:       ownerCancel,
		ActionUpdateStatus: ownerOnly,
		ActionFeedback:     ownerOnly,
	},
	RoleAgent: {
		ActionView:         assignedAgentOnly,
		ActionStart:        assignedAgentOnly,
		ActionComplete:     assignedAgentOnly,
		ActionUpdateStatus: assignedAgentOnly,
	},
}

// Can evaluates whether principal p may perform action a on request r.
// It is a pure decision: no side effects, and legality of the resulting
// status transition is checked separately by the state machine.
func Can(p Principal, r *ServiceRequest, a Action) error {
	byAction, ok := capabilities[p.Role]
	if !ok {
		return deniedErr(fmt.Sprintf("role %q has no access to service requests", p.Role))
	}
	check, ok := byAction[a]
	if !ok {
		return deniedErr(fmt.Sprintf("role %q may not %s a request", p.Role, a))
	}
	return check(p, r)
}
