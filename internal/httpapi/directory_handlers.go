package httpapi

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

type createAccountRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SquadID   string `json:"squad_id"`
	Active    *bool  `json:"active"`
}

type updateAccountRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	SquadID   *string `json:"squad_id"`
	Active    *bool   `json:"active"`
}

type squadRequest struct {
	Name      string `json:"name"`
	ManagerID string `json:"manager_id"`
}

type managerRequest struct {
	ManagerID string `json:"manager_id"`
}

type membersRequest struct {
	AccountIDs []string `json:"account_ids"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func items[T any](list []T) listResponse[T] {
	if list == nil {
		list = []T{}
	}
	return listResponse[T]{Items: list}
}

func (a *API) handleContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	act, ok := actor(w, r)
	if !ok {
		return
	}
	contacts, err := a.directory.Contacts(r.Context(), act)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items(lo.Map(contacts, func(c org.Account, _ int) org.Summary { return c.Summary() })))
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAccounts(w, r)
	case http.MethodPost:
		a.createAccount(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := splitResource(r.URL.Path, "/v1/accounts/")
	if !ok || sub != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getAccount(w, r, id)
	case http.MethodPatch:
		a.updateAccount(w, r, id)
	case http.MethodDelete:
		a.deactivateAccount(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := a.directory.ListAccounts(r.Context(), act)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items(list))
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := org.ParseRole(req.Role)
	if err != nil {
		handleError(w, r, err)
		return
	}
	acc, err := a.directory.CreateAccount(r.Context(), act, org.NewAccount{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      role,
		SquadID:   req.SquadID,
		Active:    req.Active,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), "directory.account.create", "account", acc.ID, map[string]any{
		"role": string(acc.Role),
	})
	w.Header().Set("Location", "/v1/accounts/"+acc.ID)
	writeJSON(w, http.StatusCreated, acc)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request, id string) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	acc, err := a.directory.GetAccount(r.Context(), act, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) updateAccount(w http.ResponseWriter, r *http.Request, id string) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	upd := org.AccountUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		SquadID:   req.SquadID,
		Active:    req.Active,
	}
	if req.Role != nil {
		role, err := org.ParseRole(*req.Role)
		if err != nil {
			handleError(w, r, err)
			return
		}
		upd.Role = &role
	}
	acc, err := a.directory.UpdateAccount(r.Context(), act, id, upd)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), "directory.account.update", "account", acc.ID, map[string]any{
		"role":   string(acc.Role),
		"active": acc.Active,
	})
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) deactivateAccount(w http.ResponseWriter, r *http.Request, id string) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	acc, err := a.directory.DeactivateAccount(r.Context(), act, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), "directory.account.deactivate", "account", acc.ID, nil)
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) handleSquadsCollection(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := a.directory.ListSquads(r.Context(), act)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(list))
	case http.MethodPost:
		var req squadRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sq, err := a.directory.CreateSquad(r.Context(), act, req.Name, req.ManagerID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		a.audit(r.Context(), "squad.create", "squad", sq.ID, map[string]any{"manager_id": sq.ManagerID})
		w.Header().Set("Location", "/v1/squads/"+sq.ID)
		writeJSON(w, http.StatusCreated, sq)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSquadResource(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := splitResource(r.URL.Path, "/v1/squads/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	act, ok := actor(w, r)
	if !ok {
		return
	}

	switch sub {
	case "":
	case "manager":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setManager(w, r, act, id)
		return
	case "members":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setMembers(w, r, act, id)
		return
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := a.directory.GetSquad(r.Context(), act, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPatch:
		var req squadRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sq, err := a.directory.RenameSquad(r.Context(), act, id, req.Name)
		if err != nil {
			handleError(w, r, err)
			return
		}
		a.audit(r.Context(), "squad.rename", "squad", sq.ID, map[string]any{"name": sq.Name})
		writeJSON(w, http.StatusOK, sq)
	case http.MethodDelete:
		if err := a.directory.DeleteSquad(r.Context(), act, id); err != nil {
			handleError(w, r, err)
			return
		}
		a.audit(r.Context(), "squad.delete", "squad", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) setManager(w http.ResponseWriter, r *http.Request, act org.Actor, id string) {
	var req managerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sq, err := a.directory.SetManager(r.Context(), act, id, req.ManagerID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), "squad.manager", "squad", sq.ID, map[string]any{"manager_id": sq.ManagerID})
	writeJSON(w, http.StatusOK, sq)
}

func (a *API) setMembers(w http.ResponseWriter, r *http.Request, act org.Actor, id string) {
	var req membersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	view, err := a.directory.SetMembers(r.Context(), act, id, req.AccountIDs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), "squad.members", "squad", id, map[string]any{"members": len(view.Members)})
	writeJSON(w, http.StatusOK, view)
}
