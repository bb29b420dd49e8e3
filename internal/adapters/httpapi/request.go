package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/valyala/fasthttp"
)

// プロフィール画像の上限は 5 MiB。
const maxUploadBytes = 5 << 20

const pictureFormField = "profilePicture"

type createEmployeeRequest struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phoneNumber"`
	Department  string   `json:"department"`
	Position    string   `json:"position"`
	Salary      *float64 `json:"salary"`
}

type updateEmployeeRequest struct {
	FirstName   *string  `json:"firstName"`
	LastName    *string  `json:"lastName"`
	Email       *string  `json:"email"`
	PhoneNumber *string  `json:"phoneNumber"`
	Department  *string  `json:"department"`
	Position    *string  `json:"position"`
	Salary      *float64 `json:"salary"`
}

// parseCreateRequest はマルチパートまたは JSON の作成リクエストを解釈します。
func parseCreateRequest(ctx *fasthttp.RequestCtx) (employee.CreateEmployeeInput, error) {
	var in employee.CreateEmployeeInput

	if !isMultipart(ctx) {
		var req createEmployeeRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			return in, badRequestf("malformed request body: %v", err)
		}
		return employee.CreateEmployeeInput{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
			Department:  req.Department,
			Position:    req.Position,
			Salary:      req.Salary,
		}, nil
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return in, badRequestf("malformed multipart form: %v", err)
	}

	in.FirstName, _ = formValue(form, "firstName")
	in.LastName, _ = formValue(form, "lastName")
	in.Email, _ = formValue(form, "email")
	in.PhoneNumber, _ = formValue(form, "phoneNumber")
	in.Department, _ = formValue(form, "department")
	in.Position, _ = formValue(form, "position")

	if raw, ok := formValue(form, "salary"); ok && strings.TrimSpace(raw) != "" {
		salary, err := parseSalary(raw)
		if err != nil {
			return in, err
		}
		in.Salary = &salary
	}

	picture, err := pictureFromForm(form)
	if err != nil {
		return in, err
	}
	in.Picture = picture

	return in, nil
}

// parseUpdateRequest は部分更新リクエストを解釈します。
// リクエストに現れないフィールドは nil のままとなり、更新対象外です。
func parseUpdateRequest(ctx *fasthttp.RequestCtx) (employee.UpdateEmployeeInput, error) {
	var in employee.UpdateEmployeeInput

	if !isMultipart(ctx) {
		var req updateEmployeeRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			return in, badRequestf("malformed request body: %v", err)
		}
		return employee.UpdateEmployeeInput{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
			Department:  req.Department,
			Position:    req.Position,
			Salary:      req.Salary,
		}, nil
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return in, badRequestf("malformed multipart form: %v", err)
	}

	if v, ok := formValue(form, "firstName"); ok {
		in.FirstName = &v
	}
	if v, ok := formValue(form, "lastName"); ok {
		in.LastName = &v
	}
	if v, ok := formValue(form, "email"); ok {
		in.Email = &v
	}
	if v, ok := formValue(form, "phoneNumber"); ok {
		in.PhoneNumber = &v
	}
	if v, ok := formValue(form, "department"); ok {
		in.Department = &v
	}
	if v, ok := formValue(form, "position"); ok {
		in.Position = &v
	}
	if raw, ok := formValue(form, "salary"); ok {
		salary, err := parseSalary(raw)
		if err != nil {
			return in, err
		}
		in.Salary = &salary
	}

	picture, err := pictureFromForm(form)
	if err != nil {
		return in, err
	}
	in.Picture = picture

	return in, nil
}

func isMultipart(ctx *fasthttp.RequestCtx) bool {
	contentType := string(ctx.Request.Header.ContentType())
	return strings.HasPrefix(contentType, "multipart/form-data")
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func parseSalary(raw string) (float64, error) {
	salary, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &employee.ValidationError{Fields: []employee.FieldError{
			{Field: "salary", Message: "Salary must be a positive number"},
		}}
	}
	return salary, nil
}

// pictureFromForm は添付されたプロフィール画像を取り出します。
// 5 MiB 超過および画像以外のファイルはコア層へ渡さず拒否します。
func pictureFromForm(form *multipart.Form) (*employee.Upload, error) {
	files := form.File[pictureFormField]
	if len(files) == 0 {
		return nil, nil
	}

	fh := files[0]
	if fh.Size > maxUploadBytes {
		return nil, errUploadTooLarge
	}

	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errUploadNotImage
	}

	file, err := fh.Open()
	if err != nil {
		return nil, badRequestf("open uploaded file: %v", err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, badRequestf("read uploaded file: %v", err)
	}
	if n > maxUploadBytes {
		return nil, errUploadTooLarge
	}

	return &employee.Upload{
		FileName:    fh.Filename,
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

func badRequestf(format string, args ...any) error {
	return &httpError{status: fasthttp.StatusBadRequest, err: fmt.Errorf(format, args...)}
}
