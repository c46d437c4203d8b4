package engine

import "context"

// Input is what an authorization decision is made on.
type Input struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Username    string   `json:"username"`
	Authorities []string `json:"authorities"`
}

// Evaluator decides whether an authenticated principal may perform a request.
type Evaluator interface {
	Allow(ctx context.Context, in Input) (bool, error)
}
