package demo

import (
	"github.com/hanpama/gqlengine/internal/execctx"
	"github.com/hanpama/gqlengine/internal/executor"
)

// Operation is a canned request against the demo schema.
type Operation struct {
	Name      string
	Query     string
	Variables map[string]any
	Context   execctx.Values
}

// Request converts the operation into an executor request.
func (op Operation) Request() executor.Request {
	return executor.Request{
		Query:     op.Query,
		Variables: op.Variables,
		Context:   op.Context,
	}
}

const usersQuery = `query getUsersQuery ($limit: Int) {
  hello
  isAdmin
  users(limit: $limit) {
    id
    username
    createdAt
    avatarUrl
  }
}`

const createUserMutation = `mutation ($username: String) {
  createUser(username: $username) {
    user {
      id
      username
    }
  }
}`

const createPostMutation = `mutation {
  createPost(title: "Hello", content: "World") {
    post {
      title
      content
    }
  }
}`

// Operations lists the sample requests in the order the demo runs them.
var Operations = []Operation{
	{
		Name:      "getUsers",
		Query:     usersQuery,
		Variables: map[string]any{"limit": 1},
	},
	{
		Name:      "createUser",
		Query:     createUserMutation,
		Variables: map[string]any{"username": "Freddo Bar"},
	},
	{
		Name:    "createPost",
		Query:   createPostMutation,
		Context: execctx.Values{AnonymousKey: false},
	},
}
