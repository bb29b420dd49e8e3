package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/rs/zerolog"
)

// publicBasePath は静的配信コラボレータが解釈する参照の接頭辞です。
const publicBasePath = "/uploads"

var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Store はローカルファイルシステムを利用した ArtifactStore の実装です。
// 保存先ルートは構築時に注入され、プロセス全体の可変状態を持ちません。
type Store struct {
	root string
	log  zerolog.Logger
}

// NewStore は Store を生成し、保存先ディレクトリを用意します。
func NewStore(root string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local: upload root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local: create upload root: %w", err)
	}
	return &Store{root: root, log: logger}, nil
}

// Root は保存先ディレクトリを返します。静的配信の設定に使われます。
func (s *Store) Root() string {
	return s.root
}

// Store はアップロードを一時ファイル経由で書き込み、参照を返します。
// どの失敗経路でも書きかけの一時ファイルは残りません。
func (s *Store) Store(_ context.Context, upload employee.Upload) (string, error) {
	name := uuid.NewString() + sanitizeExtension(upload.FileName)

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", employee.ErrArtifactWrite, err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(upload.Data); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", employee.ErrArtifactWrite, name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %v", employee.ErrArtifactWrite, name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.root, name)); err != nil {
		return "", fmt.Errorf("%w: finalize %s: %v", employee.ErrArtifactWrite, name, err)
	}
	cleanup = false

	s.log.Debug().Str("artifact", name).Int("bytes", len(upload.Data)).Msg("stored artifact")
	return publicBasePath + "/" + name, nil
}

// Delete は参照先のファイルを削除します。既に存在しない場合は成功扱いです。
func (s *Store) Delete(_ context.Context, ref string) error {
	name, err := s.fileName(ref)
	if err != nil {
		return fmt.Errorf("%w: %v", employee.ErrArtifactDelete, err)
	}

	if err := os.Remove(filepath.Join(s.root, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: remove %s: %v", employee.ErrArtifactDelete, name, err)
	}
	return nil
}

// Exists は参照先のファイルが存在するかを返します。
func (s *Store) Exists(_ context.Context, ref string) (bool, error) {
	name, err := s.fileName(ref)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(filepath.Join(s.root, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("local: stat %s: %w", name, err)
	}
	return true, nil
}

// fileName は参照からファイル名を取り出します。保存先ディレクトリの外を
// 指す参照は拒否されます。
func (s *Store) fileName(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, publicBasePath+"/")
	if !ok || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("local: invalid artifact reference %q", ref)
	}
	return name, nil
}

func sanitizeExtension(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return ext
}
