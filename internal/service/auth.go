package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/wb-go/wbf/ginext"

	"tikozetu/internal/dto"
	"tikozetu/internal/model"
	"tikozetu/internal/repo"
	"tikozetu/internal/session"
	"tikozetu/pkg/validator"
)

func (s *service) Register(ctx *ginext.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	role := req.Role
	if role == "" {
		role = model.RoleAttendee
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash password")
		dto.InternalServerError(ctx)
		return
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}

	if _, err := s.repo.CreateUser(ctx.Request.Context(), user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			dto.BadResponseError(ctx, dto.EmailExists, "Email already exists")
			return
		}
		s.log.Error().Err(err).Msg("failed to create user")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user registered")

	dto.SuccessCreatedResponse(ctx, dto.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}

func (s *service) Login(ctx *ginext.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	user, err := s.repo.GetUserByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			dto.UnauthenticatedError(ctx, "Invalid email or password")
			return
		}
		s.log.Error().Err(err).Msg("failed to look up user")
		dto.InternalServerError(ctx)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		dto.UnauthenticatedError(ctx, "Invalid email or password")
		return
	}

	token, err := s.sessions.Create(ctx.Request.Context(), session.Auth{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create session")
		dto.InternalServerError(ctx)
		return
	}

	ctx.SetCookie(s.opts.CookieName, token, int(s.opts.SessionTTL.Seconds()), "/", "", false, true)

	s.log.Info().Int64("user_id", user.ID).Msg("user logged in")

	dto.SuccessResponse(ctx, dto.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}

func (s *service) Logout(ctx *ginext.Context) {
	token, err := ctx.Cookie(s.opts.CookieName)
	if err == nil && token != "" {
		if err := s.sessions.Delete(ctx.Request.Context(), token); err != nil {
			s.log.Warn().Err(err).Msg("failed to delete session")
		}
	}
	ctx.SetCookie(s.opts.CookieName, "", -1, "/", "", false, true)
	dto.SuccessResponse(ctx, nil)
}

func (s *service) Profile(ctx *ginext.Context) {
	auth := authFrom(ctx)
	if auth == nil {
		dto.UnauthenticatedError(ctx, "Not logged in")
		return
	}

	user, err := s.repo.GetUserByID(ctx.Request.Context(), auth.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			dto.NotFoundError(ctx, dto.Unauthenticated, "User not found")
			return
		}
		s.log.Error().Err(err).Msg("failed to get user profile")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, dto.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}
