package graph

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/graphberry/graphberry/internal/auth"
	"github.com/graphberry/graphberry/internal/storage"
	"github.com/graphberry/graphberry/internal/stytch"
)

type ledgerStub struct {
	user storage.User
	err  error
}

func (l *ledgerStub) RecordLogin(context.Context, storage.User) error { return nil }

func (l *ledgerStub) GetUser(_ context.Context, userID string) (storage.User, error) {
	if l.err != nil {
		return storage.User{}, l.err
	}
	if l.user.ID != userID {
		return storage.User{}, storage.ErrNotFound
	}
	return l.user, nil
}

func newTestSchema(t *testing.T, users storage.UserStore) graphql.Schema {
	t.Helper()
	resolvers := NewResolvers(users, "test")
	resolvers.clock = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }
	resolvers.hostname = func() (string, error) { return "node-1", nil }
	schema, err := NewSchema(resolvers)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return schema
}

func execute(t *testing.T, schema graphql.Schema, ctx context.Context, query string) map[string]any {
	t.Helper()
	result := graphql.Do(graphql.Params{Schema: schema, RequestString: query, Context: ctx})
	if len(result.Errors) > 0 {
		t.Fatalf("graphql errors: %v", result.Errors)
	}
	data, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want map", result.Data)
	}
	return data
}

func sessionContext(userID, sessionID string) context.Context {
	return auth.WithSession(context.Background(), stytch.Session{UserID: userID, SessionID: sessionID})
}

func TestHelloReturnsAcknowledgement(t *testing.T) {
	t.Parallel()

	schema := newTestSchema(t, nil)
	data := execute(t, schema, context.Background(), "query { hello { ok msg } }")

	hello, ok := data["hello"].(map[string]any)
	if !ok {
		t.Fatalf("hello = %T", data["hello"])
	}
	if hello["ok"] != true {
		t.Fatalf("ok = %v, want true", hello["ok"])
	}
	msg, _ := hello["msg"].(string)
	if !strings.Contains(msg, "Authentication successful") {
		t.Fatalf("msg = %q", msg)
	}
}

func TestPingMutationReturnsAcknowledgement(t *testing.T) {
	t.Parallel()

	schema := newTestSchema(t, nil)
	data := execute(t, schema, context.Background(), "mutation { ping { ok msg } }")

	ping, ok := data["ping"].(map[string]any)
	if !ok {
		t.Fatalf("ping = %T", data["ping"])
	}
	if ping["ok"] != true {
		t.Fatalf("ok = %v, want true", ping["ok"])
	}
	msg, _ := ping["msg"].(string)
	if !strings.Contains(msg, "Ping successful") {
		t.Fatalf("msg = %q", msg)
	}
}

func TestAboutReportsBuildMetadata(t *testing.T) {
	t.Parallel()

	schema := newTestSchema(t, nil)
	data := execute(t, schema, context.Background(), "query { about { env version hostedAt node serverTime } }")

	about, ok := data["about"].(map[string]any)
	if !ok {
		t.Fatalf("about = %T", data["about"])
	}
	if about["env"] != "test" {
		t.Fatalf("env = %v", about["env"])
	}
	if about["version"] != Version {
		t.Fatalf("version = %v, want %q", about["version"], Version)
	}
	if about["hostedAt"] != "node-1" || about["node"] != "node-1" {
		t.Fatalf("host fields = %v/%v", about["hostedAt"], about["node"])
	}
	if about["serverTime"] != "2026-02-10T12:00:00Z" {
		t.Fatalf("serverTime = %v", about["serverTime"])
	}
}

func TestMeReflectsSessionAndLedger(t *testing.T) {
	t.Parallel()

	lastLogin := time.Date(2026, 2, 9, 8, 30, 0, 0, time.UTC)
	users := &ledgerStub{user: storage.User{
		ID:          "user-test-1",
		Email:       "ada@example.test",
		Name:        "Ada Lovelace",
		Provider:    "Google",
		LastLoginAt: lastLogin,
		Logins:      3,
	}}
	schema := newTestSchema(t, users)

	data := execute(t, schema, sessionContext("user-test-1", "session-test-9"),
		"query { me { userId sessionId email name provider lastLoginAt logins } }")

	me, ok := data["me"].(map[string]any)
	if !ok {
		t.Fatalf("me = %T", data["me"])
	}
	if me["userId"] != "user-test-1" || me["sessionId"] != "session-test-9" {
		t.Fatalf("identity = %v/%v", me["userId"], me["sessionId"])
	}
	if me["email"] != "ada@example.test" || me["provider"] != "Google" {
		t.Fatalf("profile = %v/%v", me["email"], me["provider"])
	}
	if me["lastLoginAt"] != "2026-02-09T08:30:00Z" {
		t.Fatalf("lastLoginAt = %v", me["lastLoginAt"])
	}
	if me["logins"] != 3 {
		t.Fatalf("logins = %v (%T), want 3", me["logins"], me["logins"])
	}
}

func TestMeWithoutLedgerRow(t *testing.T) {
	t.Parallel()

	schema := newTestSchema(t, &ledgerStub{})
	data := execute(t, schema, sessionContext("user-test-2", "session-test-9"),
		"query { me { userId email logins } }")

	me, ok := data["me"].(map[string]any)
	if !ok {
		t.Fatalf("me = %T", data["me"])
	}
	if me["userId"] != "user-test-2" {
		t.Fatalf("userId = %v", me["userId"])
	}
	if me["email"] != nil {
		t.Fatalf("email = %v, want null", me["email"])
	}
	if me["logins"] != nil {
		t.Fatalf("logins = %v, want null", me["logins"])
	}
}

func TestMeRequiresSession(t *testing.T) {
	t.Parallel()

	schema := newTestSchema(t, nil)
	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: "query { me { userId } }",
		Context:       context.Background(),
	})
	if len(result.Errors) == 0 {
		t.Fatal("expected resolver error without session")
	}
}
