package repository

import (
	"context"
	"errors"

	"ganetisphere/internal/model"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	GetByUserId(ctx context.Context, userId string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

func NewUserRepository(r *Repository) UserRepository {
	return &userRepository{Repository: r}
}

type userRepository struct {
	*Repository
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.DB(ctx).Save(user).Error
}

func (r *userRepository) GetByUserId(ctx context.Context, userId string) (*model.User, error) {
	var user model.User
	if err := r.DB(ctx).Where("user_id = ?", userId).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.DB(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

type ClusterUserRepository interface {
	Create(ctx context.Context, owner *model.ClusterUser) error
	GetByID(ctx context.Context, id int64) (*model.ClusterUser, error)
	GetByUserId(ctx context.Context, userId string) (*model.ClusterUser, error)
	List(ctx context.Context) ([]*model.ClusterUser, error)
}

func NewClusterUserRepository(r *Repository) ClusterUserRepository {
	return &clusterUserRepository{Repository: r}
}

type clusterUserRepository struct {
	*Repository
}

func (r *clusterUserRepository) Create(ctx context.Context, owner *model.ClusterUser) error {
	return r.DB(ctx).Create(owner).Error
}

func (r *clusterUserRepository) GetByID(ctx context.Context, id int64) (*model.ClusterUser, error) {
	var owner model.ClusterUser
	if err := r.DB(ctx).Where("id = ?", id).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &owner, nil
}

func (r *clusterUserRepository) GetByUserId(ctx context.Context, userId string) (*model.ClusterUser, error) {
	var owner model.ClusterUser
	if err := r.DB(ctx).Where("user_id = ?", userId).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &owner, nil
}

func (r *clusterUserRepository) List(ctx context.Context) ([]*model.ClusterUser, error) {
	var owners []*model.ClusterUser
	if err := r.DB(ctx).Order("id").Find(&owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}
