package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

var errFakeNotConfigured = errors.New("fake use case is not configured")

type fakeUseCase struct {
	createFn func(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error)
	getFn    func(ctx context.Context, in employee.GetEmployeeInput) (*employee.Employee, error)
	listFn   func(ctx context.Context) ([]*employee.Employee, error)
	searchFn func(ctx context.Context, filter employee.SearchFilter) ([]*employee.Employee, error)
	updateFn func(ctx context.Context, in employee.UpdateEmployeeInput) (*employee.Employee, error)
	deleteFn func(ctx context.Context, in employee.DeleteEmployeeInput) error
}

func (f *fakeUseCase) CreateEmployee(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error) {
	if f.createFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.createFn(ctx, in)
}

func (f *fakeUseCase) GetEmployee(ctx context.Context, in employee.GetEmployeeInput) (*employee.Employee, error) {
	if f.getFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.getFn(ctx, in)
}

func (f *fakeUseCase) ListEmployees(ctx context.Context) ([]*employee.Employee, error) {
	if f.listFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.listFn(ctx)
}

func (f *fakeUseCase) SearchEmployees(ctx context.Context, filter employee.SearchFilter) ([]*employee.Employee, error) {
	if f.searchFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.searchFn(ctx, filter)
}

func (f *fakeUseCase) UpdateEmployee(ctx context.Context, in employee.UpdateEmployeeInput) (*employee.Employee, error) {
	if f.updateFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.updateFn(ctx, in)
}

func (f *fakeUseCase) DeleteEmployee(ctx context.Context, in employee.DeleteEmployeeInput) error {
	if f.deleteFn == nil {
		return errFakeNotConfigured
	}
	return f.deleteFn(ctx, in)
}

func newTestService(uc employee.UseCase) *Service {
	return NewService(Deps{Employees: uc, Logger: zerolog.Nop()})
}

type testRequest struct {
	method      string
	uri         string
	contentType string
	body        []byte
	userID      string
}

func perform(t *testing.T, s *Service, tr testRequest) *fasthttp.RequestCtx {
	t.Helper()

	var req fasthttp.Request
	req.Header.SetMethod(tr.method)
	req.SetRequestURI(tr.uri)
	if tr.contentType != "" {
		req.Header.SetContentType(tr.contentType)
	}
	if tr.userID != "" {
		req.Header.Set("X-User-ID", tr.userID)
	}
	if tr.body != nil {
		req.SetBody(tr.body)
	}

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)

	s.Handler()(&ctx)
	return &ctx
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileType string, fileData []byte) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}

	if fileData != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="profilePicture"; filename="`+fileName+`"`)
		header.Set("Content-Type", fileType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func sampleEmployee() *employee.Employee {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &employee.Employee{
		ID:         "7b5f0cb2-3f4e-4df5-9c29-3a1d1e5f73b1",
		FirstName:  "Ana",
		LastName:   "Lee",
		Email:      "ana@x.com",
		Department: "Engineering",
		Position:   "SWE",
		Salary:     72000,
		CreatedBy:  "user-1",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestHealth(t *testing.T) {
	s := newTestService(&fakeUseCase{})

	ctx := perform(t, s, testRequest{method: fasthttp.MethodGet, uri: "/api/health"})

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"status":"ok"`)
}

func TestListEmployees(t *testing.T) {
	s := newTestService(&fakeUseCase{
		listFn: func(context.Context) ([]*employee.Employee, error) {
			return []*employee.Employee{sampleEmployee()}, nil
		},
	})

	ctx := perform(t, s, testRequest{method: fasthttp.MethodGet, uri: "/api/employees"})

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var got []employeeResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ana@x.com", got[0].Email)
	assert.Equal(t, 72000.0, got[0].Salary)
}

func TestSearchEmployees_PassesFilter(t *testing.T) {
	var gotFilter employee.SearchFilter
	s := newTestService(&fakeUseCase{
		searchFn: func(_ context.Context, filter employee.SearchFilter) ([]*employee.Employee, error) {
			gotFilter = filter
			return nil, nil
		},
	})

	ctx := perform(t, s, testRequest{method: fasthttp.MethodGet, uri: "/api/employees/search?department=Eng&position=SWE"})

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, employee.SearchFilter{Department: "Eng", Position: "SWE"}, gotFilter)
}

func TestCreateEmployee_Multipart(t *testing.T) {
	var gotInput employee.CreateEmployeeInput
	s := newTestService(&fakeUseCase{
		createFn: func(_ context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error) {
			gotInput = in
			return sampleEmployee(), nil
		},
	})

	body, contentType := multipartBody(t, map[string]string{
		"firstName":  "Ana",
		"lastName":   "Lee",
		"email":      "Ana@X.com",
		"department": "Engineering",
		"position":   "SWE",
		"salary":     "72000",
	}, "photo.png", "image/png", []byte("png-bytes"))

	ctx := perform(t, s, testRequest{
		method:      fasthttp.MethodPost,
		uri:         "/api/employees",
		contentType: contentType,
		body:        body,
		userID:      "user-1",
	})

	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())

	assert.Equal(t, "Ana", gotInput.FirstName)
	assert.Equal(t, "Ana@X.com", gotInput.Email)
	assert.Equal(t, "user-1", gotInput.CreatedBy)
	require.NotNil(t, gotInput.Salary)
	assert.Equal(t, 72000.0, *gotInput.Salary)
	require.NotNil(t, gotInput.Picture)
	assert.Equal(t, "photo.png", gotInput.Picture.FileName)
	assert.Equal(t, "image/png", gotInput.Picture.ContentType)
	assert.Equal(t, []byte("png-bytes"), gotInput.Picture.Data)

	var got employeeResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
	assert.Equal(t, "7b5f0cb2-3f4e-4df5-9c29-3a1d1e5f73b1", got.ID)
}

func TestCreateEmployee_RequiresUserHeader(t *testing.T) {
	called := false
	s := newTestService(&fakeUseCase{
		createFn: func(context.Context, employee.CreateEmployeeInput) (*employee.Employee, error) {
			called = true
			return sampleEmployee(), nil
		},
	})

	ctx := perform(t, s, testRequest{
		method:      fasthttp.MethodPost,
		uri:         "/api/employees",
		contentType: "application/json",
		body:        []byte(`{"firstName":"Ana"}`),
	})

	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.False(t, called)
}

func TestCreateEmployee_ValidationError(t *testing.T) {
	s := newTestService(&fakeUseCase{
		createFn: func(context.Context, employee.CreateEmployeeInput) (*employee.Employee, error) {
			return nil, &employee.ValidationError{Fields: []employee.FieldError{
				{Field: "firstName", Message: "First name is required"},
				{Field: "email", Message: "Please enter a valid email"},
			}}
		},
	})

	ctx := perform(t, s, testRequest{
		method:      fasthttp.MethodPost,
		uri:         "/api/employees",
		contentType: "application/json",
		body:        []byte(`{}`),
		userID:      "user-1",
	})

	require.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())

	var got errorResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
	assert.Equal(t, "Validation failed", got.Message)
	require.Len(t, got.Errors, 2)
	assert.Equal(t, "firstName", got.Errors[0].Field)
	assert.Equal(t, "First name is required", got.Errors[0].Message)
}

func TestCreateEmployee_DuplicateEmail(t *testing.T) {
	s := newTestService(&fakeUseCase{
		createFn: func(context.Context, employee.CreateEmployeeInput) (*employee.Employee, error) {
			return nil, employee.ErrEmailAlreadyExists
		},
	})

	ctx := perform(t, s, testRequest{
		method:      fasthttp.MethodPost,
		uri:         "/api/employees",
		contentType: "application/json",
		body:        []byte(`{"email":"ana@x.com"}`),
		userID:      "user-1",
	})

	assert.Equal(t, fasthttp.StatusConflict, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "Email already exists")
}

func TestCreateEmployee_RejectsOversizedUpload(t *testing.T) {
	called := false
	s := newTestService(&fakeUseCase{
		createFn: func(context.Context, employee.CreateEmployeeInput) (*employee.Employee, error) {
			called = true
			return sampleEmployee(), nil
		},
	})

	body, contentType := multipartBody(t, map[string]string{"firstName": "Ana"},
		"big.png", "image/png", make([]byte, maxUploadBytes+1))

	ctx := perform(t, s, testRequest{
		method:      fasthttp.MethodPost,
		uri:         "/api/employees",
		contentType: contentType,
		body:        body,
		userID:      "user-1",
	})

	assert.Equal(t, fasthttp.StatusRequestEntityTooLarge, ctx.Response.StatusCode())
	assert.False(t, called)
}

func TestCreateEmployee_RejectsNonImageUpload(t *testing.T) {
	s := newTestService(&fakeUseCase{})

	body, contentType := multipartBody(t, nil, "notes.txt", "text/plain", []byte("not an image"))

	ctx := perform(t, s, testRequest{
		method:      fasthttp.MethodPost,
		uri:         "/api/employees",
		contentType: contentType,
		body:        body,
		userID:      "user-1",
	})

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "must be an image")
}

func TestGetEmployee_NotFound(t *testing.T) {
	s := newTestService(&fakeUseCase{
		getFn: func(context.Context, employee.GetEmployeeInput) (*employee.Employee, error) {
			return nil, employee.ErrEmployeeNotFound
		},
	})

	ctx := perform(t, s, testRequest{method: fasthttp.MethodGet, uri: "/api/employees/not-a-uuid"})

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "Employee not found")
}

func TestUpdateEmployee_PartialJSON(t *testing.T) {
	var gotInput employee.UpdateEmployeeInput
	s := newTestService(&fakeUseCase{
		updateFn: func(_ context.Context, in employee.UpdateEmployeeInput) (*employee.Employee, error) {
			gotInput = in
			return sampleEmployee(), nil
		},
	})

	ctx := perform(t, s, testRequest{
		method:      fasthttp.MethodPut,
		uri:         "/api/employees/7b5f0cb2-3f4e-4df5-9c29-3a1d1e5f73b1",
		contentType: "application/json",
		body:        []byte(`{"salary":80000}`),
		userID:      "user-1",
	})

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	assert.Equal(t, "7b5f0cb2-3f4e-4df5-9c29-3a1d1e5f73b1", gotInput.ID)
	require.NotNil(t, gotInput.Salary)
	assert.Equal(t, 80000.0, *gotInput.Salary)
	assert.Nil(t, gotInput.FirstName)
	assert.Nil(t, gotInput.Email)
	assert.Nil(t, gotInput.Picture)
}

func TestUpdateEmployee_MultipartFieldPresence(t *testing.T) {
	var gotInput employee.UpdateEmployeeInput
	s := newTestService(&fakeUseCase{
		updateFn: func(_ context.Context, in employee.UpdateEmployeeInput) (*employee.Employee, error) {
			gotInput = in
			return sampleEmployee(), nil
		},
	})

	body, contentType := multipartBody(t, map[string]string{"department": "Platform"},
		"photo.jpg", "image/jpeg", []byte("jpg-bytes"))

	ctx := perform(t, s, testRequest{
		method:      fasthttp.MethodPut,
		uri:         "/api/employees/7b5f0cb2-3f4e-4df5-9c29-3a1d1e5f73b1",
		contentType: contentType,
		body:        body,
		userID:      "user-1",
	})

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	require.NotNil(t, gotInput.Department)
	assert.Equal(t, "Platform", *gotInput.Department)
	assert.Nil(t, gotInput.FirstName)
	assert.Nil(t, gotInput.Salary)
	require.NotNil(t, gotInput.Picture)
	assert.Equal(t, "image/jpeg", gotInput.Picture.ContentType)
}

func TestDeleteEmployee(t *testing.T) {
	var gotID string
	s := newTestService(&fakeUseCase{
		deleteFn: func(_ context.Context, in employee.DeleteEmployeeInput) error {
			gotID = in.ID
			return nil
		},
	})

	ctx := perform(t, s, testRequest{
		method: fasthttp.MethodDelete,
		uri:    "/api/employees/7b5f0cb2-3f4e-4df5-9c29-3a1d1e5f73b1",
		userID: "user-1",
	})

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "7b5f0cb2-3f4e-4df5-9c29-3a1d1e5f73b1", gotID)
	assert.Contains(t, string(ctx.Response.Body()), "Employee deleted successfully")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestService(&fakeUseCase{})

	ctx := perform(t, s, testRequest{method: fasthttp.MethodOptions, uri: "/api/employees"})

	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Equal(t, "*", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
}

func TestStorageUnavailableMapsToServiceUnavailable(t *testing.T) {
	s := newTestService(&fakeUseCase{
		listFn: func(context.Context) ([]*employee.Employee, error) {
			return nil, employee.ErrStorageUnavailable
		},
	})

	ctx := perform(t, s, testRequest{method: fasthttp.MethodGet, uri: "/api/employees"})

	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
}
