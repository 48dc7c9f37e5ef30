package demo

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed users.yaml
var seedUsers []byte

// User is a registered account. A nil ID or CreatedAt is filled in by the
// field defaults when the user is resolved; a nil Username resolves to null.
type User struct {
	ID        *string    `yaml:"id"`
	Username  *string    `yaml:"username"`
	CreatedAt *time.Time `yaml:"createdAt,omitempty"`
}

type Post struct {
	Title   *string
	Content *string
}

// CreateUserPayload is the result of the createUser mutation.
type CreateUserPayload struct {
	User *User
}

// CreatePostPayload is the result of the createPost mutation.
type CreatePostPayload struct {
	Post *Post
}

// LoadUsers decodes a YAML document with a top-level "users" list.
func LoadUsers(data []byte) ([]User, error) {
	var doc struct {
		Users []User `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return doc.Users, nil
}

// SeedUsers returns the built-in user list.
func SeedUsers() []User {
	users, err := LoadUsers(seedUsers)
	if err != nil {
		panic(err)
	}
	return users
}
