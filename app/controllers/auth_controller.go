package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"

	"github.com/ManuelReschke/MoviAPI/app/models"
	"github.com/ManuelReschke/MoviAPI/app/repository"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/usercontext"
)

type AuthController struct {
	users repository.UserRepository
	store *session.Store
}

func NewAuthController(users repository.UserRepository, store *session.Store) *AuthController {
	return &AuthController{users: users, store: store}
}

type signUpRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=150"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (ac *AuthController) HandleSignUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Request body must be JSON")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "name, a valid email and a password of at least 8 characters are required")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	if _, err := ac.users.GetByEmail(ctx, req.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[Auth] sign-up lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Sign-up failed")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}
	if err := ac.users.Create(ctx, user); err != nil {
		log.Errorf("[Auth] sign-up insert failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Sign-up failed")
	}

	if err := ac.startSession(c, user); err != nil {
		log.Errorf("[Auth] session start failed for %s: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Session could not be created")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": sessionUser(user)})
}

func (ac *AuthController) HandleSignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Request body must be JSON")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	// one message for unknown email and wrong password
	user, err := ac.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Auth] sign-in lookup failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Sign-in failed")
		}
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
	}
	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
	}

	if err := ac.startSession(c, user); err != nil {
		log.Errorf("[Auth] session start failed for %s: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Session could not be created")
	}
	if err := ac.users.TouchLastLogin(ctx, user.ID); err != nil {
		log.Warnf("[Auth] failed to update last login for %s: %v", user.ID, err)
	}
	return c.JSON(fiber.Map{"user": sessionUser(user)})
}

func (ac *AuthController) HandleSignOut(c *fiber.Ctx) error {
	sess, err := ac.store.Get(c)
	if err != nil {
		return c.JSON(fiber.Map{"ok": true})
	}
	if err := sess.Destroy(); err != nil {
		log.Errorf("[Auth] session destroy failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Sign-out failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleGetSession reports the caller identity resolved by the user context
// middleware. Anonymous callers get authenticated=false, not an error.
func (ac *AuthController) HandleGetSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.JSON(fiber.Map{"authenticated": false, "user": nil})
	}
	return c.JSON(fiber.Map{
		"authenticated": true,
		"user": fiber.Map{
			"id":       userCtx.UserID,
			"email":    userCtx.Email,
			"username": userCtx.Username,
		},
		"auth_method": userCtx.AuthMethod,
	})
}

func (ac *AuthController) startSession(c *fiber.Ctx, user *models.User) error {
	sess, err := ac.store.Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyEmail, user.Email)
	sess.Set(usercontext.KeyUsername, user.Name)
	return sess.Save()
}

func sessionUser(user *models.User) fiber.Map {
	return fiber.Map{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Name,
	}
}
