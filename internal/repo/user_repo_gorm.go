package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sum-admin/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	u.Active = true
	return translate(r.db.WithContext(ctx).Create(u).Error, "usuario")
}

func (r *UserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id_usuario = ?", id).Error; err != nil {
		return nil, translate(err, "usuario")
	}
	return &u, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, translate(err, "usuario")
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, translate(err, "usuario")
	}
	return &u, nil
}

func (r *UserRepo) FindByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	users := []domain.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Where("id_usuario IN ?", ids).
		Order("id_usuario").
		Find(&users).Error
	return users, translate(err, "usuarios")
}

func (r *UserRepo) List(ctx context.Context, includeInactive bool) ([]domain.User, error) {
	users := []domain.User{}
	q := r.db.WithContext(ctx).Model(&domain.User{})
	if !includeInactive {
		q = q.Where("activo = ?", true)
	}
	err := q.Order("id_usuario").Find(&users).Error
	return users, translate(err, "usuarios")
}

// Update 写回全部可变列（map 形式，空字符串同样落库）；存在性由调用方先确认
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id_usuario = ?", u.ID).
		Updates(map[string]any{
			"username":           u.Username,
			"email":              u.Email,
			"nombre":             u.FirstName,
			"apellido":           u.LastName,
			"password_hash":      u.PasswordHash,
			"fecha_modificacion": time.Now(),
		})
	return translate(res.Error, "usuario")
}

func (r *UserRepo) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id_usuario = ?", id).
		Updates(map[string]any{"activo": false, "fecha_modificacion": time.Now()})
	return translate(res.Error, "usuario")
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id_usuario = ?", id).
		UpdateColumn("ultimo_login", at).Error
	return translate(err, "usuario")
}
