package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avtoline/garage-billing/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

type accessClaims struct {
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Parse validates an HMAC-signed access token and extracts the Principal.
func (p *Parser) Parse(tokenString string) (model.Principal, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Principal{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	companyID, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: bad company_id", ErrInvalidToken)
	}

	role := model.Role(strings.ToUpper(strings.TrimSpace(claims.Role)))
	switch role {
	case model.RoleMechanic, model.RoleOffice, model.RoleManager, model.RoleAdmin:
	default:
		return model.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return model.Principal{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
	}, nil
}
