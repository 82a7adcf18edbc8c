package auth

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type IAuthService interface {
	Register(ctx context.Context, username, password string) (userID string, err error)
	Login(ctx context.Context, username, password string) (token string, err error)
	VerifyToken(token string) (userID, username string, err error)
}

type authService struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
}

func NewAuthService(db *sql.DB, secret string, ttl time.Duration) IAuthService {
	return &authService{db: db, secret: []byte(secret), ttl: ttl}
}

func (svc *authService) Register(ctx context.Context, username, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}

	const q = `INSERT INTO users (username, password_hash)
	                VALUES ($1, $2)
	           ON CONFLICT (username) DO NOTHING
	           RETURNING id`
	var id int64
	err = svc.db.QueryRowContext(ctx, q, username, string(hash)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUsernameTaken
	}
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (svc *authService) Login(ctx context.Context, username, password string) (string, error) {
	const q = `SELECT id, password_hash FROM users WHERE username = $1`
	var (
		id   int64
		hash string
	)
	err := svc.db.QueryRowContext(ctx, q, username).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"id":       strconv.FormatInt(id, 10),
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(svc.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
}

func (svc *authService) VerifyToken(token string) (string, string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return svc.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return "", "", ErrInvalidToken
	}
	return id, username, nil
}
