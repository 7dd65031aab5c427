package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Service mints and checks the opaque bearer tokens the LM issues at
// registration. Tokens are HS256 JWTs so a restarted LM with the same secret
// still recognizes them; the wire contract only requires an equality check.
type Service struct {
	jwtSecret []byte
}

func NewService(secret string) *Service {
	return &Service{jwtSecret: []byte(secret)}
}

// GenerateToken mints a bearer token for an agent.
func (s *Service) GenerateToken(role, agentID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role":     role,
		"agent_id": agentID,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(72 * time.Hour).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// ValidateToken checks the signature and returns the agent id it was minted
// for.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		agentID, ok := claims["agent_id"].(string)
		if !ok {
			return "", errors.New("invalid token claims")
		}
		return agentID, nil
	}

	return "", errors.New("invalid token")
}

// HashOperatorKey hashes the operator key guarding the control plane.
func (s *Service) HashOperatorKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), 14)
	return string(bytes), err
}

// CheckOperatorKey compares a presented key against the stored hash.
func (s *Service) CheckOperatorKey(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// GenerateID returns a random hex identifier for game ids and codes.
func GenerateID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
