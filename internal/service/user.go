package service

import (
	"context"
	"time"

	v1 "ganetisphere/api/v1"
	"ganetisphere/internal/model"
	"ganetisphere/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	Register(ctx context.Context, req *v1.RegisterRequest) error
	Login(ctx context.Context, req *v1.LoginRequest) (string, error)
	GetProfile(ctx context.Context, userId string) (*v1.GetProfileResponseData, error)
	UpdateProfile(ctx context.Context, userId string, req *v1.UpdateProfileRequest) error
	ListOwners(ctx context.Context) ([]*model.ClusterUser, error)
}

func NewUserService(service *Service, userRepo repository.UserRepository, ownerRepo repository.ClusterUserRepository) UserService {
	return &userService{
		userRepo:  userRepo,
		ownerRepo: ownerRepo,
		Service:   service,
	}
}

type userService struct {
	userRepo  repository.UserRepository
	ownerRepo repository.ClusterUserRepository
	*Service
}

func (s *userService) Register(ctx context.Context, req *v1.RegisterRequest) error {
	user, err := s.userRepo.GetByUsername(ctx, req.Email)
	if err != nil {
		return err
	}
	if user != nil {
		return v1.ErrEmailAlreadyUse
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	userId, err := s.sid.GenString()
	if err != nil {
		return err
	}
	user = &model.User{
		UserId:   userId,
		Username: req.Email,
		Email:    req.Email,
		Password: string(hashedPassword),
	}

	// 注册同时建立同名的归属者身份，归属标签用它的 ID
	return s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return s.ownerRepo.Create(ctx, &model.ClusterUser{
			Name:   req.Email,
			UserId: userId,
		})
	})
}

func (s *userService) Login(ctx context.Context, req *v1.LoginRequest) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Email)
	if err != nil || user == nil {
		return "", v1.ErrUnauthorized
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password))
	if err != nil {
		return "", err
	}
	token, err := s.jwt.GenToken(user.UserId, time.Now().Add(time.Hour*24*90))
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *userService) GetProfile(ctx context.Context, userId string) (*v1.GetProfileResponseData, error) {
	user, err := s.userRepo.GetByUserId(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, v1.ErrNotFound
	}
	return &v1.GetProfileResponseData{
		UserId:   user.UserId,
		Nickname: user.Nickname,
		Email:    user.Email,
	}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userId string, req *v1.UpdateProfileRequest) error {
	user, err := s.userRepo.GetByUserId(ctx, userId)
	if err != nil {
		return err
	}
	if user == nil {
		return v1.ErrNotFound
	}

	user.Email = req.Email
	user.Nickname = req.Nickname
	return s.userRepo.Update(ctx, user)
}

func (s *userService) ListOwners(ctx context.Context) ([]*model.ClusterUser, error) {
	return s.ownerRepo.List(ctx)
}
