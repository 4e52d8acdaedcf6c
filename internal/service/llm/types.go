package llm

import (
	"context"
)

// Question 一次提问, System 为可选的角色设定
type Question struct {
	System  string
	Content string
}

type Answer struct {
	Content     string
	InputToken  int
	OutputToken int
}

// Service 无状态的一问一答
type Service interface {
	AskOnce(ctx context.Context, q Question) (Answer, error)
}
