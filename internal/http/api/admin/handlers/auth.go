package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/config"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
	log "github.com/sirupsen/logrus"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	codec      *security.TokenCodec
	identities []identity
}

type identity struct {
	role    security.Role
	account config.AdminIdentity
}

// NewAuthHandler constructs an AuthHandler for the two configured identities.
func NewAuthHandler(codec *security.TokenCodec, super, site config.AdminIdentity) *AuthHandler {
	return &AuthHandler{
		codec: codec,
		identities: []identity{
			{role: security.RoleSuper, account: super},
			{role: security.RoleSite, account: site},
		},
	}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Login checks the credentials against the configured identities and issues a
// token. Every failure is the same 401.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	for _, candidate := range h.identities {
		account := candidate.account
		if account.Username == "" || account.Password == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(account.Username), []byte(username)) != 1 {
			continue
		}
		if !security.CheckPassword(account.Password, body.Password) || !security.CheckTOTP(account.TOTPSecret, body.Code) {
			break
		}
		token, errIssue := h.codec.Issue(account.Username, candidate.role)
		if errIssue != nil {
			log.WithError(errIssue).Error("admin login: issue token failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		log.WithFields(log.Fields{"subject": account.Username, "role": candidate.role}).Info("admin login succeeded")
		c.JSON(http.StatusOK, gin.H{"token": token, "role": candidate.role})
		return
	}

	log.WithField("username", username).Warn("admin login failed")
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
