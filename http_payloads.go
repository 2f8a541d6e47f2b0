package auth

import (
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// LoginPayload is the JSON login body
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

// LoginFormPayload is the OAuth2 password form body
type LoginFormPayload struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (p LoginFormPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

// UpdateAccountPayload is the PATCH body for profile and admin updates
type UpdateAccountPayload struct {
	Name             *string `json:"name"`
	Nickname         *string `json:"nickname"`
	Bio              *string `json:"bio"`
	AvatarURL        *string `json:"avatar_url"`
	ProfileCompleted *bool   `json:"profile_completed"`
	IsAdmin          *bool   `json:"is_admin"`
	IsActive         *bool   `json:"is_active"`
}

func (p UpdateAccountPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&p.Nickname, validation.Length(0, 100)),
		validation.Field(&p.Bio, validation.Length(0, 2000)),
		validation.Field(&p.AvatarURL, validation.Length(0, 500)),
	)
}

func (p UpdateAccountPayload) Patch() AccountPatch {
	return AccountPatch{
		Name:             p.Name,
		Nickname:         p.Nickname,
		Bio:              p.Bio,
		AvatarURL:        p.AvatarURL,
		ProfileCompleted: p.ProfileCompleted,
		IsAdmin:          p.IsAdmin,
		IsActive:         p.IsActive,
	}
}

// TokenResponse is returned by register and login endpoints
type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
	User        *Account `json:"user"`
}

func newTokenResponse(result *LoginResult) TokenResponse {
	return TokenResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		ExpiresAt:   result.ExpiresAt.UTC().Format(time.RFC3339),
		User:        result.Account,
	}
}

// PageResponse wraps a listing page
type PageResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

func parseBody(c router.Context, out validation.Validatable) error {
	if err := c.Bind(out); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid request body")
	}
	if err := out.Validate(); err != nil {
		return validationError(err)
	}
	return nil
}

func queryBool(c router.Context, key string) (*bool, error) {
	raw := c.Query(key, "")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid boolean for "+key)
	}
	return &v, nil
}

func queryPage(c router.Context, defaultLimit int) (int, int) {
	return normalizePage(c.QueryInt("skip", 0), c.QueryInt("limit", defaultLimit), defaultLimit)
}
