package employee

import "context"

// Repository は従業員永続化の抽象です。
type Repository interface {
	Insert(ctx context.Context, employee *Employee) (*Employee, error)
	Replace(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	FindAll(ctx context.Context) ([]*Employee, error)
	Search(ctx context.Context, filter SearchFilter) ([]*Employee, error)
}

// SearchFilter は部署・役職の部分一致検索条件です。
// 空文字列の条件は無視され、両方空の場合は全件と同じ結果になります。
type SearchFilter struct {
	Department string
	Position   string
}

// IsEmpty は検索条件が指定されていないかを返します。
func (f SearchFilter) IsEmpty() bool {
	return f.Department == "" && f.Position == ""
}
