package httpapi

import (
	"time"

	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/valyala/fasthttp"
)

type employeeResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phoneNumber,omitempty"`
	Department     string    `json:"department"`
	Position       string    `json:"position"`
	Salary         float64   `json:"salary"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toEmployeeResponse(emp *employee.Employee) employeeResponse {
	return employeeResponse{
		ID:             emp.ID,
		FirstName:      emp.FirstName,
		LastName:       emp.LastName,
		Email:          emp.Email,
		PhoneNumber:    emp.PhoneNumber,
		Department:     emp.Department,
		Position:       emp.Position,
		Salary:         emp.Salary,
		ProfilePicture: emp.ProfilePicture,
		CreatedBy:      emp.CreatedBy,
		CreatedAt:      emp.CreatedAt,
		UpdatedAt:      emp.UpdatedAt,
	}
}

func toEmployeeResponses(employees []*employee.Employee) []employeeResponse {
	result := make([]employeeResponse, 0, len(employees))
	for _, emp := range employees {
		result = append(result, toEmployeeResponse(emp))
	}
	return result
}

func (s *Service) health(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, okResponse{Status: "ok", Message: "employee-registry is up"})
}

func (s *Service) listEmployees(ctx *fasthttp.RequestCtx) {
	employees, err := s.employees.ListEmployees(ctx)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, toEmployeeResponses(employees))
}

func (s *Service) searchEmployees(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	filter := employee.SearchFilter{
		Department: string(args.Peek("department")),
		Position:   string(args.Peek("position")),
	}

	employees, err := s.employees.SearchEmployees(ctx, filter)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, toEmployeeResponses(employees))
}

func (s *Service) getEmployee(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)

	emp, err := s.employees.GetEmployee(ctx, employee.GetEmployeeInput{ID: id})
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, toEmployeeResponse(emp))
}

func (s *Service) createEmployee(ctx *fasthttp.RequestCtx) {
	in, err := parseCreateRequest(ctx)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	in.CreatedBy, _ = ctx.UserValue(principalKey).(string)

	created, err := s.employees.CreateEmployee(ctx, in)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, toEmployeeResponse(created))
}

func (s *Service) updateEmployee(ctx *fasthttp.RequestCtx) {
	in, err := parseUpdateRequest(ctx)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	in.ID, _ = ctx.UserValue("id").(string)

	updated, err := s.employees.UpdateEmployee(ctx, in)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, toEmployeeResponse(updated))
}

func (s *Service) deleteEmployee(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)

	if err := s.employees.DeleteEmployee(ctx, employee.DeleteEmployeeInput{ID: id}); err != nil {
		writeDomainError(ctx, err)
		return
	}

	ok(ctx, "Employee deleted successfully")
}
