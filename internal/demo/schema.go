// Package demo builds the sample schema: a user listing query and two
// mutations, one of which requires an authenticated caller.
package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hanpama/gqlengine/internal/execctx"
	"github.com/hanpama/gqlengine/internal/executor"
	"github.com/hanpama/gqlengine/internal/resolve"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// ErrNotAuthenticated is returned by createPost for anonymous callers.
var ErrNotAuthenticated = errors.New("Not Authenticated")

// AnonymousKey is the execution context flag checked by createPost.
const AnonymousKey = "is_anonymous"

type options struct {
	frozen      bool
	clock       func() time.Time
	newID       func() string
	users       []User
	log         *zap.Logger
	concurrency int
}

type Option func(*options)

// WithFrozenDefaults computes the User.id and User.createdAt defaults once,
// when the schema is built, instead of on every resolution.
func WithFrozenDefaults() Option {
	return func(o *options) { o.frozen = true }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithIDGenerator replaces the random UUID generator used for user IDs.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

// WithUsers replaces the seed users.
func WithUsers(users []User) Option {
	return func(o *options) { o.users = users }
}

// WithLogger sets the logger handed to the runtime and executor.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithConcurrency limits concurrent async resolvers per batch.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

func newOptions(opts []Option) *options {
	o := &options{
		clock: time.Now,
		newID: uuid.NewString,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.users == nil {
		o.users = SeedUsers()
	}
	return o
}

// NewSchema builds and validates the demo schema.
func NewSchema(opts ...Option) (*schema.Schema, error) {
	return buildSchema(newOptions(opts))
}

// NewExecutor returns an executor running the demo schema.
func NewExecutor(opts ...Option) (*executor.Executor, error) {
	o := newOptions(opts)
	sch, err := buildSchema(o)
	if err != nil {
		return nil, err
	}
	rt := resolve.New(sch, resolve.WithLogger(o.log), resolve.WithConcurrency(o.concurrency))
	return executor.NewExecutor(rt, sch, executor.WithLogger(o.log)), nil
}

func buildSchema(o *options) (*schema.Schema, error) {
	// Seed users get their creation time once, so repeated queries agree.
	created := o.clock()
	users := make([]*User, len(o.users))
	for i := range o.users {
		u := o.users[i]
		if u.CreatedAt == nil {
			u.CreatedAt = &created
		}
		users[i] = &u
	}

	idDefault := schema.DefaultFunc(func() any { return o.newID() })
	createdAtDefault := schema.DefaultFunc(func() any { return o.clock() })
	if o.frozen {
		idDefault = schema.Frozen(o.newID())
		createdAtDefault = schema.Frozen(o.clock())
	}

	s := schema.NewSchema("Users, posts and an authenticated mutation.")
	s.SetQueryType("Query").SetMutationType("Mutation")

	s.AddType(schema.NewType("DateTime", schema.TypeKindScalar, "An RFC 3339 timestamp.").
		SetSpecifiedByURL("https://datatracker.ietf.org/doc/html/rfc3339").
		SetSerialize(serializeDateTime))

	s.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("hello", "", schema.NamedType("String")).
			SetResolve(func(context.Context, any, map[string]any) (any, error) {
				return "world", nil
			})).
		AddField(schema.NewField("isAdmin", "", schema.NamedType("Boolean")).
			SetResolve(func(context.Context, any, map[string]any) (any, error) {
				return true, nil
			})).
		AddField(schema.NewField("users", "", schema.ListType(schema.NamedType("User"))).
			AddArgument(schema.NewInputValue("limit", "Maximum number of users to return.", schema.NamedType("Int"))).
			SetAsync(true).
			SetResolve(func(ctx context.Context, _ any, args map[string]any) (any, error) {
				return truncate(users, args["limit"]), nil
			})))

	s.AddType(schema.NewType("User", schema.TypeKindObject, "").
		AddField(schema.NewField("id", "", schema.NamedType("ID")).SetDefault(idDefault)).
		AddField(schema.NewField("username", "", schema.NamedType("String"))).
		AddField(schema.NewField("createdAt", "", schema.NamedType("DateTime")).SetDefault(createdAtDefault)).
		AddField(schema.NewField("avatarUrl", "", schema.NamedType("String")).
			SetResolve(func(_ context.Context, src any, _ map[string]any) (any, error) {
				u, ok := src.(*User)
				if !ok {
					return nil, fmt.Errorf("avatarUrl: unexpected source %T", src)
				}
				return fmt.Sprintf("https://cloudinary.com/%s/%s", deref(u.Username), deref(u.ID)), nil
			})))

	s.AddType(schema.NewType("Post", schema.TypeKindObject, "").
		AddField(schema.NewField("title", "", schema.NamedType("String"))).
		AddField(schema.NewField("content", "", schema.NamedType("String"))))

	s.AddType(schema.NewType("CreateUser", schema.TypeKindObject, "").
		AddField(schema.NewField("user", "", schema.NamedType("User"))))
	s.AddType(schema.NewType("CreatePost", schema.TypeKindObject, "").
		AddField(schema.NewField("post", "", schema.NamedType("Post"))))

	s.AddType(schema.NewType("Mutation", schema.TypeKindObject, "").
		AddField(schema.NewField("createUser", "", schema.NamedType("CreateUser")).
			AddArgument(schema.NewInputValue("username", "", schema.NamedType("String"))).
			SetResolve(func(_ context.Context, _ any, args map[string]any) (any, error) {
				// The id comes from the field default so frozen mode hands
				// every created user the same one.
				id, _ := idDefault().(string)
				return &CreateUserPayload{User: &User{ID: &id, Username: stringArg(args, "username")}}, nil
			})).
		AddField(schema.NewField("createPost", "", schema.NamedType("CreatePost")).
			AddArgument(schema.NewInputValue("title", "", schema.NamedType("String"))).
			AddArgument(schema.NewInputValue("content", "", schema.NamedType("String"))).
			SetResolve(func(ctx context.Context, _ any, args map[string]any) (any, error) {
				if execctx.FromContext(ctx).Truthy(AnonymousKey) {
					return nil, ErrNotAuthenticated
				}
				post := &Post{Title: stringArg(args, "title"), Content: stringArg(args, "content")}
				return &CreatePostPayload{Post: post}, nil
			})))

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("demo schema: %w", err)
	}
	return s, nil
}

// truncate returns at most limit users in their original order. A null limit
// keeps every user and a negative one keeps none.
func truncate(users []*User, limit any) []*User {
	n, ok := limit.(int)
	if !ok || n >= len(users) {
		return users
	}
	if n < 0 {
		return []*User{}
	}
	return users[:n]
}

// stringArg returns the String argument called name, or nil when it was
// absent or null.
func stringArg(args map[string]any, name string) *string {
	s, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func serializeDateTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.Format(time.RFC3339Nano), nil
	case string:
		if _, err := time.Parse(time.RFC3339Nano, t); err != nil {
			return nil, fmt.Errorf("DateTime cannot represent %q: %w", t, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("DateTime cannot represent value: %v", v)
}
