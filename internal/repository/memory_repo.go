package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hitoshi/studentms/internal/model"
)

// MemoryStore はユーザーと学生名簿をプロセス内メモリに保持するストア。
// 1つのミューテックスでユーザーと学生の両方を保護し、
// メールアドレスの一意性チェックと書き込みをアトミックに行う。
// テストおよびDBなしでのローカル動作確認に使用する。
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	students map[string]*model.Student
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*model.User),
		students: make(map[string]*model.Student),
	}
}

// Users はMemoryStoreをUserRepositoryとして返す。
func (m *MemoryStore) Users() *MemoryUserRepo {
	return &MemoryUserRepo{store: m}
}

// Students はMemoryStoreをStudentRepositoryとして返す。
func (m *MemoryStore) Students() *MemoryStudentRepo {
	return &MemoryStudentRepo{store: m}
}

// MemoryUserRepo はMemoryStoreを使用したユーザーリポジトリ。
type MemoryUserRepo struct {
	store *MemoryStore
}

func copyUser(u *model.User) *model.User {
	c := *u
	if u.EnrollmentYear != nil {
		y := *u.EnrollmentYear
		c.EnrollmentYear = &y
	}
	return &c
}

// FindByID は指定IDのユーザーを取得する。
func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

// FindByEmail はメールアドレスでユーザーを検索する。
func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if u := r.store.findUserByEmailLocked(email); u != nil {
		return copyUser(u), nil
	}
	return nil, nil
}

func (m *MemoryStore) findUserByEmailLocked(email string) *model.User {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

// Create はユーザーを作成する。
func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.findUserByEmailLocked(user.Email) != nil {
		return ErrDuplicateEmail
	}
	r.store.users[user.ID] = copyUser(user)
	return nil
}

// Update はユーザーの可変フィールドを更新する。emailとcreated_atは保持する。
func (r *MemoryUserRepo) Update(_ context.Context, user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	updated := copyUser(user)
	updated.Email = existing.Email
	updated.CreatedAt = existing.CreatedAt
	r.store.users[user.ID] = updated
	return nil
}

// DeleteByID は指定IDのユーザーを削除し、紐付く学生のUserIDを外す。
func (r *MemoryUserRepo) DeleteByID(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[id]; !ok {
		return ErrNotFound
	}
	r.store.deleteUserLocked(id)
	return nil
}

func (m *MemoryStore) deleteUserLocked(id string) {
	delete(m.users, id)
	for _, s := range m.students {
		if s.UserID != nil && *s.UserID == id {
			s.UserID = nil
		}
	}
}

// MemoryStudentRepo はMemoryStoreを使用した学生名簿リポジトリ。
type MemoryStudentRepo struct {
	store *MemoryStore
}

func copyStudent(s *model.Student) *model.Student {
	c := *s
	if s.UserID != nil {
		id := *s.UserID
		c.UserID = &id
	}
	if s.EnrollmentYear != nil {
		y := *s.EnrollmentYear
		c.EnrollmentYear = &y
	}
	return &c
}

func (m *MemoryStore) studentEmailTakenLocked(email, exceptID string) bool {
	for _, s := range m.students {
		if s.ID != exceptID && strings.EqualFold(s.Email, email) {
			return true
		}
	}
	return false
}

// FindByID は指定IDの学生を取得する。
func (r *MemoryStudentRepo) FindByID(_ context.Context, id string) (*model.Student, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.students[id]
	if !ok {
		return nil, nil
	}
	return copyStudent(s), nil
}

// List は絞り込み条件に一致する学生を作成日時の降順で返す。
func (r *MemoryStudentRepo) List(_ context.Context, filter model.StudentFilter) ([]*model.Student, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	matched := make([]*model.Student, 0, len(r.store.students))
	for _, s := range r.store.students {
		if filter.Course != "" && !strings.EqualFold(s.Course, filter.Course) {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := filter.Offset()
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}

	page := make([]*model.Student, 0, end-start)
	for _, s := range matched[start:end] {
		page = append(page, copyStudent(s))
	}
	return page, total, nil
}

// Create は学生を作成する。
func (r *MemoryStudentRepo) Create(_ context.Context, s *model.Student) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.studentEmailTakenLocked(s.Email, "") {
		return ErrDuplicateEmail
	}
	r.store.students[s.ID] = copyStudent(s)
	return nil
}

// Update は学生の可変フィールドを更新する。
func (r *MemoryStudentRepo) Update(_ context.Context, s *model.Student) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.students[s.ID]
	if !ok {
		return ErrNotFound
	}
	if r.store.studentEmailTakenLocked(s.Email, s.ID) {
		return ErrDuplicateEmail
	}
	updated := copyStudent(s)
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	r.store.students[s.ID] = updated
	return nil
}

// DeleteWithLinkedUser は学生と紐付くstudentロールのユーザーを削除する。
// 未紐付けの場合は同じメールアドレスのstudentロールのユーザーを対象にする。
func (r *MemoryStudentRepo) DeleteWithLinkedUser(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.students[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.store.students, id)

	var linked *model.User
	if s.UserID != nil {
		linked = r.store.users[*s.UserID]
	} else {
		linked = r.store.findUserByEmailLocked(s.Email)
	}
	if linked != nil && linked.Role == model.RoleStudent {
		r.store.deleteUserLocked(linked.ID)
	}
	return nil
}

// compile-time interface check
var (
	_ UserRepository    = (*MemoryUserRepo)(nil)
	_ StudentRepository = (*MemoryStudentRepo)(nil)
)
