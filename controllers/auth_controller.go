package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"mailforge/config"
	"mailforge/models"
	"mailforge/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type AuthController struct {
	DB          *gorm.DB
	Logger      *log.Logger
	Secret      []byte
	Verifier    *utils.GoogleVerifier
	OAuth       *oauth2.Config
	UserInfoURL string
}

func NewAuthController(db *gorm.DB, logger *log.Logger) *AuthController {
	return &AuthController{
		DB:       db,
		Logger:   logger,
		Secret:   []byte(config.AppConfig.JWTSecret),
		Verifier: utils.NewGoogleVerifier(config.AppConfig.Google.ClientID),
		OAuth: &oauth2.Config{
			ClientID:     config.AppConfig.Google.ClientID,
			ClientSecret: config.AppConfig.Google.ClientSecret,
			RedirectURL:  config.AppConfig.Google.RedirectURI,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UserInfoURL: googleUserInfoURL,
	}
}

type GoogleAuthRequest struct {
	Token string `json:"token" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// GoogleAuth verifies a Google ID token and signs the user in, creating the
// account on first sight.
func (ac *AuthController) GoogleAuth(c *fiber.Ctx) error {
	var req GoogleAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No token provided",
		})
	}

	claims, err := ac.Verifier.Verify(c.Context(), req.Token)
	if err != nil {
		ac.Logger.Printf("Token verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token verification failed: " + err.Error(),
		})
	}

	user, err := ac.findOrCreateUser(googleProfile{
		ID:         claims.Subject,
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Picture:    claims.Picture,
	})
	if err != nil {
		ac.Logger.Printf("Error creating/retrieving user: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Error creating/retrieving user: " + err.Error(),
		})
	}

	accessToken, refreshToken, err := utils.GenerateTokenPair(ac.DB, user, ac.Secret, c.Get("User-Agent"), c.IP())
	if err != nil {
		return internalError(c, ac.Logger, "failed to generate tokens", err)
	}

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

// RefreshToken rotates a refresh token for a new access/refresh pair.
func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	accessToken, refreshToken, err := utils.RotateRefreshToken(ac.DB, req.RefreshToken, ac.Secret)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidRefreshToken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid refresh token",
			})
		}
		return internalError(c, ac.Logger, "failed to rotate refresh token", err)
	}

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// GetCurrentUser returns the authenticated user.
func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	return c.JSON(user)
}

// GoogleOAuth starts the server-side Google OAuth redirect flow.
func (ac *AuthController) GoogleOAuth(c *fiber.Ctx) error {
	// State token with CSRF protection, stored in a short-lived cookie
	state := uuid.NewString()

	cookie := new(fiber.Cookie)
	cookie.Name = "oauth_state"
	cookie.Value = state
	cookie.Expires = time.Now().Add(10 * time.Minute)
	cookie.HTTPOnly = true
	cookie.Secure = true
	cookie.SameSite = "Lax"
	c.Cookie(cookie)

	url := ac.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// GoogleOAuthCallback exchanges the authorization code, resolves the user
// and issues the same session pair as the token-verification flow.
func (ac *AuthController) GoogleOAuthCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	cookieState := c.Cookies("oauth_state")

	if state == "" || cookieState == "" || state != cookieState {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid state parameter",
		})
	}
	c.ClearCookie("oauth_state")

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Authorization code not provided",
		})
	}

	token, err := ac.OAuth.Exchange(context.Background(), code)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to exchange token: " + err.Error(),
		})
	}

	profile, err := ac.fetchGoogleProfile(token)
	if err != nil {
		return internalError(c, ac.Logger, "failed to fetch Google profile", err)
	}
	if profile.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Google account email is required",
		})
	}

	user, err := ac.findOrCreateUser(*profile)
	if err != nil {
		return internalError(c, ac.Logger, "failed to resolve user", err)
	}

	accessToken, refreshToken, err := utils.GenerateTokenPair(ac.DB, user, ac.Secret, c.Get("User-Agent"), c.IP())
	if err != nil {
		return internalError(c, ac.Logger, "failed to generate tokens", err)
	}

	// Set secure HTTP-only cookies matching the token expiries
	accessCookie := new(fiber.Cookie)
	accessCookie.Name = "access_token"
	accessCookie.Value = accessToken
	accessCookie.Expires = time.Now().Add(15 * time.Minute)
	accessCookie.HTTPOnly = true
	accessCookie.Secure = true
	accessCookie.SameSite = "Lax"
	c.Cookie(accessCookie)

	refreshCookie := new(fiber.Cookie)
	refreshCookie.Name = "refresh_token"
	refreshCookie.Value = refreshToken
	refreshCookie.Expires = time.Now().Add(7 * 24 * time.Hour)
	refreshCookie.HTTPOnly = true
	refreshCookie.Secure = true
	refreshCookie.SameSite = "Lax"
	c.Cookie(refreshCookie)

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

type googleProfile struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
	Picture    string
}

// findOrCreateUser resolves a Google profile to a local account. The lookup
// key is the email; an account is created exactly once per email.
func (ac *AuthController) findOrCreateUser(profile googleProfile) (*models.User, error) {
	var user models.User
	err := ac.DB.Where("email = ?", profile.Email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user = models.User{
			Email:          profile.Email,
			FirstName:      profile.GivenName,
			LastName:       profile.FamilyName,
			GoogleID:       &profile.ID,
			GoogleImageURL: &profile.Picture,
			IsActive:       true,
		}
		if err := ac.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	// Update Google info if it changed since last login
	updateNeeded := false
	if user.GoogleID == nil || *user.GoogleID != profile.ID {
		user.GoogleID = &profile.ID
		updateNeeded = true
	}
	if profile.Picture != "" && (user.GoogleImageURL == nil || *user.GoogleImageURL != profile.Picture) {
		user.GoogleImageURL = &profile.Picture
		updateNeeded = true
	}
	if updateNeeded {
		if err := ac.DB.Save(&user).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func (ac *AuthController) fetchGoogleProfile(token *oauth2.Token) (*googleProfile, error) {
	client := ac.OAuth.Client(context.Background(), token)
	resp, err := client.Get(ac.UserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.New("Google API error: " + string(body))
	}

	var info struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}

	return &googleProfile{
		ID:         info.ID,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Picture:    info.Picture,
	}, nil
}
