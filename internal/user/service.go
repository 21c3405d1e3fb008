package user

import (
	"context"
	"log/slog"

	"github.com/hitoshi/studentms/internal/model"
)

// TextSanitizer はプロフィールのテキスト項目を無害化するインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// PictureValidator はプロフィール画像URLを検証するインターフェース。
type PictureValidator interface {
	ValidateProfilePicture(ctx context.Context, rawURL string) error
}

// ProfileInput は本人によるプロフィール更新の入力。
// ロール・メールアドレス・パスワードは含まない。
type ProfileInput struct {
	FullName       *string
	Phone          *string
	Course         *string
	ProfilePicture *string
	EnrollmentYear *int
}

// Service はプロフィール更新とロール変更のサービス層。
type Service struct {
	store     *Store
	sanitizer TextSanitizer
	pictures  PictureValidator
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizer, picturesはnilの場合それぞれの処理を省略する。
func NewService(store *Store, sanitizer TextSanitizer, pictures PictureValidator) *Service {
	return &Service{
		store:     store,
		sanitizer: sanitizer,
		pictures:  pictures,
	}
}

// UpdateProfile は呼び出し元本人のプロフィールを更新する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*model.User, error) {
	update := model.UserUpdate{
		FullName:       s.sanitize(input.FullName),
		Phone:          s.sanitize(input.Phone),
		Course:         s.sanitize(input.Course),
		EnrollmentYear: input.EnrollmentYear,
	}
	if update.FullName != nil && *update.FullName == "" {
		return nil, model.NewValidationError("fullName must not be empty")
	}

	// 空文字列は画像の削除として扱う
	if input.ProfilePicture != nil {
		if *input.ProfilePicture != "" && s.pictures != nil {
			if err := s.pictures.ValidateProfilePicture(ctx, *input.ProfilePicture); err != nil {
				slog.Warn("profile picture rejected",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				return nil, model.NewValidationError("profilePicture must be a public http(s) URL")
			}
		}
		update.ProfilePicture = input.ProfilePicture
	}

	return s.store.Update(ctx, userID, update)
}

// ChangeRole は管理者が他ユーザーのロールを変更する。
// 自分自身のロールは変更できない。
func (s *Service) ChangeRole(ctx context.Context, actor *model.User, targetID string, role model.Role) (*model.User, error) {
	if actor == nil || !actor.HasRole(model.RoleAdmin) {
		return nil, model.NewForbiddenError()
	}
	if actor.ID == targetID {
		return nil, model.NewSelfRoleChangeError()
	}
	if !role.Valid() {
		return nil, model.NewValidationError("role must be admin or student")
	}

	user, err := s.store.Update(ctx, targetID, model.UserUpdate{Role: &role})
	if err != nil {
		return nil, err
	}

	slog.Info("role changed",
		slog.String("actor_id", actor.ID),
		slog.String("target_id", targetID),
		slog.String("role", string(role)),
	)
	return user, nil
}

func (s *Service) sanitize(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	if s.sanitizer != nil {
		out = s.sanitizer.SanitizeText(out)
	}
	return &out
}

