package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrInvalidPin = errors.New("invalid pin")

// PoolClient consulta o pool-service para validar PINs; os PINs nunca saem de lá
type PoolClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewPoolClient(base string) *PoolClient {
	return &PoolClient{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

type verifyRequest struct {
	Pin string `json:"pin"`
}

type verifyResponse struct {
	Actor string `json:"actor"`
}

// VerifyPin devolve o participante ("a" | "b") dono do PIN
func (c *PoolClient) VerifyPin(ctx context.Context, pin string) (string, error) {
	body, _ := json.Marshal(verifyRequest{Pin: pin})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/auth/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusUnauthorized {
		return "", ErrInvalidPin
	}
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("pool verify http %d", res.StatusCode)
	}
	var out verifyResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Actor == "" {
		return "", ErrInvalidPin
	}
	return out.Actor, nil
}
