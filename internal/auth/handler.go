package auth

import (
	"errors"
	"strings"

	"granja-backend/internal/api"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=5,max=60"`
	FullName        string `json:"full_name" validate:"required,min=4,max=120"`
	Password        string `json:"password" validate:"required,min=4"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		CreatedAt: api.FormatTimestamp(u.CreatedAt),
	}
}

// POST /api/auth/register
func RegisterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		body.Username = strings.TrimSpace(body.Username)
		body.FullName = strings.TrimSpace(body.FullName)
		if err := api.Validate(body); err != nil {
			return err
		}

		var count int64
		if err := database.DB.Model(&models.User{}).
			Where("LOWER(username) = ?", strings.ToLower(body.Username)).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "El nombre de usuario ya existe")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
		}

		user := models.User{
			Username:     body.Username,
			FullName:     body.FullName,
			PasswordHash: string(hash),
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// POST /api/auth/login
func LoginHandler(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		var user models.User
		if err := database.DB.Where("username = ?", strings.TrimSpace(body.Username)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "Usuario o contraseña incorrectos")
			}
			return err
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario o contraseña incorrectos")
		}

		token, err := GenerateToken(secret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(user),
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario no autenticado")
		}

		var user models.User
		if err := database.DB.First(&user, *userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
		}
		return c.JSON(toUserResponse(user))
	}
}

// GET /api/users?username=...
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := api.ApplyFilters(c, database.DB.Model(&models.User{}), map[string]api.Filter{
			"id":       {Column: "id"},
			"username": {Column: "username"},
		})
		if err != nil {
			return err
		}

		var users []models.User
		if err := q.Order("full_name asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los usuarios")
		}

		resp := make([]UserResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, toUserResponse(u))
		}
		return c.JSON(resp)
	}
}
