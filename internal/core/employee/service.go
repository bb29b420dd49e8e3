package employee

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Service は従業員レコードとアーティファクトのライフサイクルを統括します。
// レコード状態の書き込みは本サービスのみが行います。
type Service struct {
	repo      Repository
	artifacts ArtifactStore
	events    EventPublisher
	clock     Clock
	tx        TransactionManager
	log       zerolog.Logger
}

// UseCase は従業員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context) ([]*Employee, error)
	SearchEmployees(ctx context.Context, filter SearchFilter) ([]*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
}

// NewService は Service を生成します。events, clock, tx は nil を許容します。
func NewService(repo Repository, artifacts ArtifactStore, events EventPublisher, clock Clock, tx TransactionManager, logger zerolog.Logger) *Service {
	if events == nil {
		events = noopEventPublisher{}
	}
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, artifacts: artifacts, events: events, clock: clock, tx: tx, log: logger}
}

// CreateEmployeeInput は従業員作成時の入力です。
type CreateEmployeeInput struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Department  string
	Position    string
	Salary      *float64
	CreatedBy   string
	Picture     *Upload
}

// UpdateEmployeeInput は従業員更新時の入力です。
// nil のフィールドは変更されず、既存の値が維持されます。
type UpdateEmployeeInput struct {
	ID          string
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
	Department  *string
	Position    *string
	Salary      *float64
	Picture     *Upload
}

// GetEmployeeInput は従業員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// DeleteEmployeeInput は従業員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// CreateEmployee は新しい従業員を作成します。
// アーティファクトはレコードより先に書き込まれ、レコード挿入が失敗した場合は
// 書き込み済みのアーティファクトを削除してから失敗を返します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	emp, err := normalizeCreateInput(in)
	if err != nil {
		return nil, err
	}

	// 先行チェックは即時フィードバック用。確定的な保証は
	// employees_email_key のユニーク制約が担う。
	if err := s.ensureEmailNotExists(ctx, emp.Email, ""); err != nil {
		return nil, err
	}

	ref := ""
	if in.Picture != nil {
		stored, err := s.artifacts.Store(ctx, *in.Picture)
		if err != nil {
			return nil, err
		}
		ref = stored
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		emp.ProfilePicture = ref
		emp.CreatedAt = now
		emp.UpdatedAt = now

		result, err := s.repo.Insert(txCtx, emp)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		s.discardArtifact(ctx, ref)
		return nil, err
	}

	s.publish(ctx, EventCreated, created)
	return created, nil
}

// UpdateEmployee は従業員情報を部分更新します。
// 新しい画像が添付された場合、旧アーティファクトは新しいアーティファクトの
// 保存とレコード更新の確定後にのみ削除されます。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	existing, err := s.findExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := normalizeUpdateInput(in)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil && *patch.Email != existing.Email {
		if err := s.ensureEmailNotExists(ctx, *patch.Email, existing.ID); err != nil {
			return nil, err
		}
		existing.Email = *patch.Email
	}
	if patch.FirstName != nil {
		existing.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		existing.LastName = *patch.LastName
	}
	if patch.PhoneNumber != nil {
		existing.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Department != nil {
		existing.Department = *patch.Department
	}
	if patch.Position != nil {
		existing.Position = *patch.Position
	}
	if patch.Salary != nil {
		existing.Salary = *patch.Salary
	}

	oldRef := existing.ProfilePicture
	newRef := ""
	if in.Picture != nil {
		stored, err := s.artifacts.Store(ctx, *in.Picture)
		if err != nil {
			return nil, err
		}
		newRef = stored
		existing.ProfilePicture = newRef
	}

	existing.UpdatedAt = s.clock.Now()

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Replace(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		s.discardArtifact(ctx, newRef)
		return nil, err
	}

	if newRef != "" && oldRef != "" {
		// レコードは常に最新のアーティファクトのみを参照する。
		s.discardArtifact(ctx, oldRef)
	}

	s.publish(ctx, EventUpdated, updated)
	return updated, nil
}

// DeleteEmployee は従業員とそのアーティファクトを削除します。
// アーティファクトをレコードより先に消すため、途中で失敗しても
// 削除済みファイルを指すレコードは残りません。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	id, err := normalizeID(in.ID)
	if err != nil {
		return err
	}

	existing, err := s.findExisting(ctx, id)
	if err != nil {
		return err
	}

	if existing.HasProfilePicture() {
		if err := s.artifacts.Delete(ctx, existing.ProfilePicture); err != nil {
			// 孤児ファイルは許容し、レコード削除を続行する。
			s.log.Warn().Err(err).
				Str("employee_id", existing.ID).
				Str("artifact", existing.ProfilePicture).
				Msg("failed to delete profile picture, continuing with record deletion")
		}
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	}); err != nil {
		return err
	}

	s.publish(ctx, EventDeleted, existing)
	return nil
}

// GetEmployee は従業員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	return s.findExisting(ctx, id)
}

// ListEmployees は全従業員を作成日時の新しい順で返します。
func (s *Service) ListEmployees(ctx context.Context) ([]*Employee, error) {
	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindAll(txCtx)
		if err != nil {
			return err
		}
		employees = result
		return nil
	}); err != nil {
		return nil, err
	}

	return employees, nil
}

// SearchEmployees は部署・役職の部分一致で従業員を検索します。
// 条件が空の場合は ListEmployees と同じ結果になります。
func (s *Service) SearchEmployees(ctx context.Context, filter SearchFilter) ([]*Employee, error) {
	filter.Department = strings.TrimSpace(filter.Department)
	filter.Position = strings.TrimSpace(filter.Position)

	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Search(txCtx, filter)
		if err != nil {
			return err
		}
		employees = result
		return nil
	}); err != nil {
		return nil, err
	}

	return employees, nil
}

func (s *Service) findExisting(ctx context.Context, id string) (*Employee, error) {
	var found *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}

	return found, nil
}

func (s *Service) ensureEmailNotExists(ctx context.Context, email, excludeID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if existing != nil && existing.ID != excludeID {
		return ErrEmailAlreadyExists
	}
	return nil
}

// discardArtifact は失敗したリクエストに紐づくアーティファクトを
// ベストエフォートで削除します。
func (s *Service) discardArtifact(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.artifacts.Delete(ctx, ref); err != nil {
		s.log.Warn().Err(err).Str("artifact", ref).Msg("failed to discard orphaned artifact")
	}
}

func (s *Service) publish(ctx context.Context, kind EventKind, emp *Employee) {
	event := Event{Kind: kind, Employee: emp, OccurredAt: s.clock.Now()}
	if err := s.events.PublishEmployeeEvent(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("failed to publish employee event")
	}
}

func normalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmployeeNotFound
	}
	// 構文的に不正な ID は存在しないレコードとして扱う。
	if _, err := uuid.Parse(trimmed); err != nil {
		return "", ErrEmployeeNotFound
	}
	return trimmed, nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeCreateInput(in CreateEmployeeInput) (*Employee, error) {
	verr := &ValidationError{}

	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		verr.add("firstName", "First name is required")
	}

	lastName := strings.TrimSpace(in.LastName)
	if lastName == "" {
		verr.add("lastName", "Last name is required")
	}

	email := normalizeEmail(in.Email)
	if !emailPattern.MatchString(email) {
		verr.add("email", "Please enter a valid email")
	}

	department := strings.TrimSpace(in.Department)
	if department == "" {
		verr.add("department", "Department is required")
	}

	position := strings.TrimSpace(in.Position)
	if position == "" {
		verr.add("position", "Position is required")
	}

	salary := 0.0
	if in.Salary != nil {
		if *in.Salary < 0 {
			verr.add("salary", "Salary must be a positive number")
		} else {
			salary = *in.Salary
		}
	}

	createdBy := strings.TrimSpace(in.CreatedBy)
	if createdBy == "" {
		verr.add("createdBy", "Creator is required")
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	return &Employee{
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Department:  department,
		Position:    position,
		Salary:      salary,
		CreatedBy:   createdBy,
	}, nil
}

type updatePatch struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
	Department  *string
	Position    *string
	Salary      *float64
}

func normalizeUpdateInput(in UpdateEmployeeInput) (updatePatch, error) {
	verr := &ValidationError{}
	var patch updatePatch

	if in.FirstName != nil {
		trimmed := strings.TrimSpace(*in.FirstName)
		if trimmed == "" {
			verr.add("firstName", "First name cannot be empty")
		} else {
			patch.FirstName = &trimmed
		}
	}

	if in.LastName != nil {
		trimmed := strings.TrimSpace(*in.LastName)
		if trimmed == "" {
			verr.add("lastName", "Last name cannot be empty")
		} else {
			patch.LastName = &trimmed
		}
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !emailPattern.MatchString(email) {
			verr.add("email", "Please enter a valid email")
		} else {
			patch.Email = &email
		}
	}

	if in.PhoneNumber != nil {
		trimmed := strings.TrimSpace(*in.PhoneNumber)
		patch.PhoneNumber = &trimmed
	}

	if in.Department != nil {
		trimmed := strings.TrimSpace(*in.Department)
		if trimmed == "" {
			verr.add("department", "Department cannot be empty")
		} else {
			patch.Department = &trimmed
		}
	}

	if in.Position != nil {
		trimmed := strings.TrimSpace(*in.Position)
		if trimmed == "" {
			verr.add("position", "Position cannot be empty")
		} else {
			patch.Position = &trimmed
		}
	}

	if in.Salary != nil {
		if *in.Salary < 0 {
			verr.add("salary", "Salary must be a positive number")
		} else {
			value := *in.Salary
			patch.Salary = &value
		}
	}

	if err := verr.orNil(); err != nil {
		return updatePatch{}, err
	}

	return patch, nil
}
