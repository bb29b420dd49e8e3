package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogasahara/employee-registry/internal/core/employee"
	pgdb "github.com/ogasahara/employee-registry/internal/platform/db/postgres"
)

const (
	uniqueViolationCode           = "23505"
	checkViolationCode            = "23514"
	invalidTextRepresentationCode = "22P02"
)

const employeeColumns = `id, first_name, last_name, email, phone_number, department, position, salary, profile_picture, created_by, created_at, updated_at`

// EmployeeRepository は PostgreSQL を利用した従業員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Insert は従業員レコードを新規作成します。ID はデータベースが採番します。
// employees_email_key のユニーク制約違反は ErrEmailAlreadyExists に変換されます。
func (r *EmployeeRepository) Insert(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (first_name, last_name, email, phone_number, department, position, salary, profile_picture, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+employeeColumns+`
    `,
		e.FirstName,
		e.LastName,
		e.Email,
		e.PhoneNumber,
		e.Department,
		e.Position,
		e.Salary,
		e.ProfilePicture,
		e.CreatedBy,
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return created, nil
}

// Replace は従業員レコードの全可変フィールドを置き換えます。
func (r *EmployeeRepository) Replace(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET first_name = $1,
               last_name = $2,
               email = $3,
               phone_number = $4,
               department = $5,
               position = $6,
               salary = $7,
               profile_picture = $8,
               updated_at = $9
         WHERE id = $10
        RETURNING `+employeeColumns+`
    `,
		e.FirstName,
		e.LastName,
		e.Email,
		e.PhoneNumber,
		e.Department,
		e.Position,
		e.Salary,
		e.ProfilePicture,
		e.UpdatedAt,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return updated, nil
}

// Delete は従業員レコードを削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で従業員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return found, nil
}

// FindByEmail はメールアドレスで従業員を検索します。大文字小文字は区別しません。
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE lower(email) = lower($1)
         LIMIT 1
    `, email)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return found, nil
}

// FindAll は全従業員を作成日時の新しい順で返します。
func (r *EmployeeRepository) FindAll(ctx context.Context) ([]*employee.Employee, error) {
	return r.Search(ctx, employee.SearchFilter{})
}

// Search は部署・役職の部分一致で従業員を検索します。
// 条件はすべて AND され、空の条件は無視されます。
func (r *EmployeeRepository) Search(ctx context.Context, filter employee.SearchFilter) ([]*employee.Employee, error) {
	args := make([]any, 0, 2)
	conditions := make([]string, 0, 2)

	if filter.Department != "" {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "department ILIKE "+placeholder)
		args = append(args, containsPattern(filter.Department))
	}

	if filter.Position != "" {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "position ILIKE "+placeholder)
		args = append(args, containsPattern(filter.Position))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `
        SELECT ` + employeeColumns + `
          FROM employees` + whereClause + `
         ORDER BY created_at DESC, id DESC
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translatePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, translatePgError(err)
	}

	return employees, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id             string
		firstName      string
		lastName       string
		email          string
		phoneNumber    string
		department     string
		position       string
		salary         float64
		profilePicture string
		createdBy      string
		createdAt      time.Time
		updatedAt      time.Time
	)

	if err := row.Scan(
		&id,
		&firstName,
		&lastName,
		&email,
		&phoneNumber,
		&department,
		&position,
		&salary,
		&profilePicture,
		&createdBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	return &employee.Employee{
		ID:             id,
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		PhoneNumber:    phoneNumber,
		Department:     department,
		Position:       position,
		Salary:         salary,
		ProfilePicture: profilePicture,
		CreatedBy:      createdBy,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// translatePgError は PostgreSQL のエラーをドメインのエラー種別へ変換します。
// 入力起因ではないエラーは一時的な障害として ErrStorageUnavailable に包まれます。
func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return employee.ErrEmailAlreadyExists
		case checkViolationCode:
			return &employee.ValidationError{Fields: []employee.FieldError{
				{Field: "salary", Message: "Salary must be a positive number"},
			}}
		case invalidTextRepresentationCode:
			// uuid として不正な ID は存在しないレコードとして扱う。
			return employee.ErrEmployeeNotFound
		}
	}

	return fmt.Errorf("%w: %v", employee.ErrStorageUnavailable, err)
}

// containsPattern は部分一致用の ILIKE パターンを生成します。
// 入力に含まれる LIKE のメタ文字はエスケープされます。
func containsPattern(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
	return "%" + escaped + "%"
}
