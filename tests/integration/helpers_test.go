//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/practice-engine/internal/auth/jwt"
)

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

// subTopicOrSkip returns the seeded sub-topic the practice flow draws from.
func subTopicOrSkip(t *testing.T) string {
	t.Helper()
	id := os.Getenv("INTEGRATION_SUB_TOPIC_ID")
	if id == "" {
		t.Skip("INTEGRATION_SUB_TOPIC_ID not set; seed a sub-topic with questions first")
	}
	return id
}

// newStudentToken mints an access token for a fresh student with the secret
// the server under test verifies with.
func newStudentToken(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(envOrDefault("INTEGRATION_JWT_SECRET", "dev-secret")),
		Issuer: envOrDefault("INTEGRATION_JWT_ISSUER", "practice-engine"),
	})
	studentID := uuid.New()
	token, err := tokens.GenerateAccessToken(studentID, "integration")
	require.NoError(t, err)
	return studentID, token
}

func doJSON(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL()+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

type sessionBody struct {
	ID             string `json:"id"`
	TotalQuestions int    `json:"total_questions"`
	CurrentIndex   int    `json:"current_index"`
	Answered       []int  `json:"answered"`
	Version        int    `json:"version"`
}

type questionBody struct {
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Type    string `json:"type"`
	Options []struct {
		ID        string `json:"id"`
		IsCorrect *bool  `json:"is_correct"`
	} `json:"options"`
	TextAnswer string `json:"text_answer"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
