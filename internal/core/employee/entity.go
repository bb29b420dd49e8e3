package employee

import "time"

// Employee は従業員エンティティです。
type Employee struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Department     string
	Position       string
	Salary         float64
	ProfilePicture string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasProfilePicture はプロフィール画像が紐づいているかを返します。
func (e *Employee) HasProfilePicture() bool {
	return e != nil && e.ProfilePicture != ""
}

// Upload は従業員に添付されるアップロードファイルです。
// バイト列はアーティファクトとして永続化されるまでメモリ上に保持されます。
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}
