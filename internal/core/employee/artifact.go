package employee

import "context"

// ArtifactStore はプロフィール画像 1 件分のバイナリ保管の抽象です。
// 参照は "/uploads/<name>" 形式の相対パスで、保存・配信の両方に使われます。
type ArtifactStore interface {
	// Store はアップロードを保存し参照を返します。
	Store(ctx context.Context, upload Upload) (string, error)
	// Delete は参照先のアーティファクトを削除します。存在しない場合もエラーにしません。
	Delete(ctx context.Context, ref string) error
	// Exists は参照先のアーティファクトが存在するかを返します。
	Exists(ctx context.Context, ref string) (bool, error)
}
