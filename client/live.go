package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const userFields = `id email username firstName lastName fullName department position avatar role
	totalXP weeklyXP level currentStreak longestStreak`

const (
	loginMutation = `mutation Login($email: String!, $password: String!) {
  login(email: $email, password: $password) { token user { ` + userFields + ` } }
}`
	registerMutation = `mutation Register($input: RegisterInput!) {
  register(input: $input) { token user { ` + userFields + ` } }
}`
	logoutMutation = `mutation Logout { logout }`
	meQuery        = `query Me { me { ` + userFields + ` } }`
)

// LiveBackend talks to the portal GraphQL API.
type LiveBackend struct {
	endpoint    string
	appVersion  string
	environment string
	http        *http.Client
}

func NewLiveBackend(endpoint, appVersion, environment string) *LiveBackend {
	return &LiveBackend{
		endpoint:    endpoint,
		appVersion:  appVersion,
		environment: environment,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// GraphQLError is an entry of the response's errors array.
type GraphQLError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

func (e *GraphQLError) Error() string { return e.Message }

// Code returns extensions.code, or "".
func (e *GraphQLError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

type gqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// do posts one operation and decodes data into out. The first GraphQL error
// is returned as is so callers can show its message.
func (l *LiveBackend) do(ctx context.Context, token string, req gqlRequest, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-App-Version", l.appVersion)
	httpReq.Header.Set("X-App-Environment", l.environment)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := l.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("graphql response (status %d): %w", resp.StatusCode, err)
	}
	if len(decoded.Errors) > 0 {
		return &decoded.Errors[0]
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphql request failed with status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(decoded.Data, out)
}

type authPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (l *LiveBackend) Login(ctx context.Context, email, password string) (*Session, error) {
	var data struct {
		Login authPayload `json:"login"`
	}
	err := l.do(ctx, "", gqlRequest{
		Query:         loginMutation,
		OperationName: "Login",
		Variables:     map[string]interface{}{"email": email, "password": password},
	}, &data)
	if err != nil {
		return nil, err
	}
	return &Session{Token: data.Login.Token, User: data.Login.User}, nil
}

func (l *LiveBackend) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	var data struct {
		Register authPayload `json:"register"`
	}
	err := l.do(ctx, "", gqlRequest{
		Query:         registerMutation,
		OperationName: "Register",
		Variables:     map[string]interface{}{"input": in},
	}, &data)
	if err != nil {
		return nil, err
	}
	return &Session{Token: data.Register.Token, User: data.Register.User}, nil
}

func (l *LiveBackend) Logout(ctx context.Context, token string) error {
	return l.do(ctx, token, gqlRequest{Query: logoutMutation, OperationName: "Logout"}, nil)
}

func (l *LiveBackend) Me(ctx context.Context, token string) (*User, error) {
	var data struct {
		Me *User `json:"me"`
	}
	if err := l.do(ctx, token, gqlRequest{Query: meQuery, OperationName: "Me"}, &data); err != nil {
		return nil, err
	}
	if data.Me == nil {
		return nil, fmt.Errorf("empty me response")
	}
	return data.Me, nil
}
