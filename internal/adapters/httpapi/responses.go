package httpapi

import (
	"encoding/json"
	"errors"

	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/valyala/fasthttp"
)

var (
	errEmployeeNotFound   = errors.New("Employee not found")
	errEmailTaken         = errors.New("Email already exists")
	errArtifactNotFound   = errors.New("File not found")
	errStorageUnavailable = errors.New("Storage is temporarily unavailable")
	errUserHeaderRequired = errors.New("X-User-ID header is required")
)

// httpError は HTTP ステータスを確定済みのエラーです。
type httpError struct {
	status int
	err    error
}

func (e *httpError) Error() string {
	return e.err.Error()
}

var (
	errUploadTooLarge = &httpError{status: fasthttp.StatusRequestEntityTooLarge, err: errors.New("Profile picture exceeds the 5 MiB limit")}
	errUploadNotImage = &httpError{status: fasthttp.StatusBadRequest, err: errors.New("Profile picture must be an image")}
)

type okResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Errors  []fieldErrorResponse `json:"errors,omitempty"`
}

func writeJSON(ctx *fasthttp.RequestCtx, statusCode int, body any) {
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.SetStatusCode(statusCode)

	_ = json.NewEncoder(ctx).Encode(body)
}

func ok(ctx *fasthttp.RequestCtx, message string) {
	writeJSON(ctx, fasthttp.StatusOK, okResponse{Status: "ok", Message: message})
}

func writeError(ctx *fasthttp.RequestCtx, httpStatus int, err error) {
	writeJSON(ctx, httpStatus, errorResponse{Code: fasthttp.StatusMessage(httpStatus), Message: err.Error()})
}

// writeDomainError はコア層のエラーを HTTP レスポンスに変換します。
func writeDomainError(ctx *fasthttp.RequestCtx, err error) {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		writeError(ctx, httpErr.status, httpErr.err)
		return
	}

	var verr *employee.ValidationError
	if errors.As(err, &verr) {
		fields := make([]fieldErrorResponse, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, fieldErrorResponse{Field: f.Field, Message: f.Message})
		}
		writeJSON(ctx, fasthttp.StatusBadRequest, errorResponse{
			Code:    fasthttp.StatusMessage(fasthttp.StatusBadRequest),
			Message: "Validation failed",
			Errors:  fields,
		})
		return
	}

	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound):
		writeError(ctx, fasthttp.StatusNotFound, errEmployeeNotFound)
	case errors.Is(err, employee.ErrEmailAlreadyExists):
		writeError(ctx, fasthttp.StatusConflict, errEmailTaken)
	case errors.Is(err, employee.ErrStorageUnavailable):
		writeError(ctx, fasthttp.StatusServiceUnavailable, errStorageUnavailable)
	default:
		writeError(ctx, fasthttp.StatusInternalServerError, err)
	}
}
